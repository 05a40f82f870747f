// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/config"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
	"github.com/bureau-foundation/ndn/lib/testutil"
	"github.com/bureau-foundation/ndn/lib/treestore"
)

const testLeafSize = 1024

// workspace is a temp directory holding a config file, a store, and
// an input object of five leaves (the last one short).
type workspace struct {
	dir        string
	configPath string
	storeRoot  string
	objectPath string
	data       []byte
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:        dir,
		configPath: filepath.Join(dir, "mtree.yaml"),
		storeRoot:  filepath.Join(dir, "store"),
		objectPath: filepath.Join(dir, "object.bin"),
		data:       testutil.Payload(11, 5*testLeafSize-100),
	}
	configText := "store:\n  root: " + ws.storeRoot + "\n" +
		"tree:\n  leaf_size: 1024\n  hash_algorithm: sha256\n" +
		"log:\n  level: error\n  format: json\n"
	if err := os.WriteFile(ws.configPath, []byte(configText), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if err := os.WriteFile(ws.objectPath, ws.data, 0o644); err != nil {
		t.Fatalf("writing object: %v", err)
	}
	t.Setenv(config.EnvironmentVariable, "")
	return ws
}

// run executes the command tree with --config appended after the
// subcommand arguments and returns stdout.
func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRoot(&out)
	root.HelpOutput = &bytes.Buffer{}
	err := root.Execute(append(args, "--config", ws.configPath))
	return out.String(), err
}

func (ws *workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	output, err := ws.run(t, args...)
	testutil.RequireNoError(t, err, "mtree %s", strings.Join(args, " "))
	return output
}

// expectedID hashes data in memory with the workspace geometry.
func expectedID(t *testing.T, data []byte, hashAlgorithm string) objid.ObjectID {
	t.Helper()
	metadata, err := mtree.NewMetadata(uint64(len(data)), testLeafSize, hashAlgorithm)
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	writer, err := mtree.WriteObject(context.Background(), mtree.NewBuffer(nil), bytes.NewReader(data), metadata)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	id, err := writer.ObjectID()
	if err != nil {
		t.Fatalf("ObjectID: %v", err)
	}
	return id
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want ExitError", err)
	}
	if exitErr.ExitCode() != code {
		t.Fatalf("exit code = %d, want %d", exitErr.ExitCode(), code)
	}
}

func TestBuildIntoStore(t *testing.T) {
	ws := newWorkspace(t)
	want := expectedID(t, ws.data, "sha256")

	output := ws.mustRun(t, "build", ws.objectPath)
	if got := strings.TrimSpace(output); got != want.String() {
		t.Fatalf("build printed %q, want %q", got, want)
	}

	var info infoResult
	if err := json.Unmarshal([]byte(ws.mustRun(t, "info", want.String(), "--json")), &info); err != nil {
		t.Fatalf("decoding info: %v", err)
	}
	if !info.Object.Equal(want) {
		t.Errorf("info object = %s, want %s", info.Object, want)
	}
	if info.LeafCount != 5 || info.Depth != 3 {
		t.Errorf("info leaves/depth = %d/%d, want 5/3", info.LeafCount, info.Depth)
	}
	wantCounts := []uint64{6, 4, 2, 1}
	if len(info.CountPerDepth) != len(wantCounts) {
		t.Fatalf("count_per_depth = %v, want %v", info.CountPerDepth, wantCounts)
	}
	for i := range wantCounts {
		if info.CountPerDepth[i] != wantCounts[i] {
			t.Errorf("count_per_depth = %v, want %v", info.CountPerDepth, wantCounts)
			break
		}
	}
	if info.SlotCount != 13 {
		t.Errorf("slot_count = %d, want 13", info.SlotCount)
	}
	if info.Source != filepath.Join(ws.storeRoot, "objects", want.Hex()[:2], want.Hex()+".mtree") {
		t.Errorf("source = %s", info.Source)
	}
}

func TestBuildFlagsOverrideConfig(t *testing.T) {
	ws := newWorkspace(t)
	want := expectedID(t, ws.data, "sha512")

	var result buildResult
	output := ws.mustRun(t, "build", ws.objectPath, "--hash", "sha512", "--leaf-size", "1024", "--json")
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("decoding build result: %v", err)
	}
	if !result.Object.Equal(want) {
		t.Errorf("object = %s, want %s", result.Object, want)
	}
	if len(result.Object.Hash) != 64 {
		t.Errorf("sha512 object hash is %d bytes", len(result.Object.Hash))
	}
	if result.Metadata.HashAlgorithm != "sha512" {
		t.Errorf("metadata hash = %q", result.Metadata.HashAlgorithm)
	}
}

func TestBuildToFileProveAndVerify(t *testing.T) {
	ws := newWorkspace(t)
	want := expectedID(t, ws.data, "sha256")
	streamPath := filepath.Join(ws.dir, "object.mtree")
	proofPath := filepath.Join(ws.dir, "leaf3.cbor")

	if got := strings.TrimSpace(ws.mustRun(t, "build", ws.objectPath, "--out", streamPath)); got != want.String() {
		t.Fatalf("build --out printed %q, want %q", got, want)
	}
	entries, err := os.ReadDir(filepath.Join(ws.storeRoot, "objects"))
	if err == nil && len(entries) > 0 {
		t.Errorf("build --out wrote %d entries into the store", len(entries))
	}

	ws.mustRun(t, "proof", streamPath, "3", "--out", proofPath)
	output := ws.mustRun(t, "verify", proofPath, "--object", want.String())
	if !strings.HasPrefix(output, "OK: leaf 3 of 5 is in "+want.String()) {
		t.Errorf("verify output = %q", output)
	}

	t.Run("WrongObject", func(t *testing.T) {
		other := objid.New(objid.TypeMerkleTree, bytes.Repeat([]byte{0xab}, 32))
		output, err := ws.run(t, "verify", proofPath, "--object", other.String())
		requireExitCode(t, err, 1)
		if !strings.HasPrefix(output, "FAILED:") {
			t.Errorf("verify output = %q", output)
		}
	})

	t.Run("TamperedLeaf", func(t *testing.T) {
		data, err := os.ReadFile(proofPath)
		if err != nil {
			t.Fatal(err)
		}
		proof, err := mtree.DecodeProof(data)
		if err != nil {
			t.Fatal(err)
		}
		proof.Leaf[0] ^= 0xff
		tampered, err := mtree.EncodeProof(proof)
		if err != nil {
			t.Fatal(err)
		}
		tamperedPath := filepath.Join(ws.dir, "tampered.cbor")
		if err := os.WriteFile(tamperedPath, tampered, 0o644); err != nil {
			t.Fatal(err)
		}

		output, err := ws.run(t, "verify", tamperedPath, "--json")
		requireExitCode(t, err, 1)
		var result verifyResult
		if err := json.Unmarshal([]byte(output), &result); err != nil {
			t.Fatalf("decoding verify result: %v", err)
		}
		if result.Valid || result.Error == "" || result.LeafIndex != 3 {
			t.Errorf("verify result = %+v, want invalid leaf 3 with error", result)
		}
	})

	t.Run("GarbageProof", func(t *testing.T) {
		garbagePath := filepath.Join(ws.dir, "garbage.cbor")
		if err := os.WriteFile(garbagePath, []byte{0xff, 0x00}, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ws.run(t, "verify", garbagePath)
		testutil.RequireErrorIs(t, err, mtree.ErrInvalidData)
	})
}

func TestProofOutputs(t *testing.T) {
	ws := newWorkspace(t)
	id := strings.TrimSpace(ws.mustRun(t, "build", ws.objectPath))

	var proof mtree.Proof
	if err := json.Unmarshal([]byte(ws.mustRun(t, "proof", id, "4", "--json")), &proof); err != nil {
		t.Fatalf("decoding proof: %v", err)
	}
	if err := proof.Verify(); err != nil {
		t.Errorf("JSON proof does not verify: %v", err)
	}
	if len(proof.Path) != 4 {
		t.Errorf("proof path has %d entries, want 4", len(proof.Path))
	}

	text := ws.mustRun(t, "proof", id, "4")
	for _, want := range []string{"Object: " + id, "Leaf:   4 of 5", "DEPTH", "(root)"} {
		if !strings.Contains(text, want) {
			t.Errorf("proof text missing %q:\n%s", want, text)
		}
	}

	diagnostic := ws.mustRun(t, "proof", id, "4", "--diagnose")
	if !strings.Contains(diagnostic, `"leaf_index": 4`) {
		t.Errorf("diagnostic notation missing leaf index:\n%s", diagnostic)
	}

	_, err := ws.run(t, "proof", id, "5")
	testutil.RequireErrorIs(t, err, mtree.ErrInvalidParameter)

	if _, err := ws.run(t, "proof", id, "minus-one"); err == nil {
		t.Error("proof with a non-numeric leaf index succeeded")
	}
}

func TestCheckAndList(t *testing.T) {
	ws := newWorkspace(t)
	id := strings.TrimSpace(ws.mustRun(t, "build", ws.objectPath))

	output := ws.mustRun(t, "check", id)
	if !strings.Contains(output, "nodes     ok") {
		t.Errorf("check output = %q", output)
	}

	var records []*treestore.Record
	if err := json.Unmarshal([]byte(ws.mustRun(t, "list", "--json")), &records); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(records) != 1 || records[0].Object.String() != id {
		t.Fatalf("list = %+v, want one record for %s", records, id)
	}
	if records[0].LeafCount != 5 {
		t.Errorf("record leaf count = %d, want 5", records[0].LeafCount)
	}

	parsed, err := objid.Parse(id)
	if err != nil {
		t.Fatal(err)
	}
	streamPath := filepath.Join(ws.storeRoot, "objects", parsed.Hex()[:2], parsed.Hex()+".mtree")
	if err := os.Chmod(streamPath, 0o644); err != nil {
		t.Fatal(err)
	}
	file, err := os.OpenFile(streamPath, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	info, err := file.Stat()
	if err != nil {
		t.Fatal(err)
	}
	// The last byte belongs to the root slot.
	if _, err := file.WriteAt([]byte{0x5a}, info.Size()-1); err != nil {
		t.Fatal(err)
	}
	file.Close()

	output, err = ws.run(t, "check", id)
	requireExitCode(t, err, 1)
	if !strings.Contains(output, "checksum  FAILED") {
		t.Errorf("check output after corruption = %q", output)
	}
}

func TestListEmptyStore(t *testing.T) {
	ws := newWorkspace(t)
	if output := ws.mustRun(t, "list"); output != "no trees stored\n" {
		t.Errorf("list output = %q", output)
	}
	if output := ws.mustRun(t, "list", "--json"); strings.TrimSpace(output) != "[]" {
		t.Errorf("list --json output = %q", output)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv(config.EnvironmentVariable, ws.configPath)

	var out bytes.Buffer
	if err := newRoot(&out).Execute([]string{"build", ws.objectPath}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.storeRoot, "records")); err != nil {
		t.Errorf("store from %s not used: %v", config.EnvironmentVariable, err)
	}
}

func TestCommandErrors(t *testing.T) {
	ws := newWorkspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"BuildWithoutFile", []string{"build"}, "expected 1 argument(s), got 0"},
		{"BuildMissingFile", []string{"build", filepath.Join(ws.dir, "missing")}, "opening"},
		{"BuildBadHash", []string{"build", ws.objectPath, "--hash", "md5"}, "md5"},
		{"InfoUnknownTarget", []string{"info", filepath.Join(ws.dir, "missing")}, "neither an object id nor a readable stream file"},
		{"CheckMalformedID", []string{"check", "not-an-id"}, "no type separator"},
		{"ListExtraArgument", []string{"list", "extra"}, "expected 0 argument(s), got 1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ws.run(t, test.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %q, want it to contain %q", err, test.want)
			}
		})
	}

	t.Run("InfoMissingObject", func(t *testing.T) {
		missing := objid.New(objid.TypeMerkleTree, bytes.Repeat([]byte{0x01}, 32))
		_, err := ws.run(t, "info", missing.String())
		testutil.RequireErrorIs(t, err, treestore.ErrNotFound)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		if err := os.WriteFile(ws.configPath, []byte("tree:\n  leaf_size: 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ws.run(t, "list")
		if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("error = %v, want invalid configuration", err)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	if err := newRoot(&out).Execute([]string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "mtree ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{4 << 20, "4.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, test := range tests {
		if got := formatSize(test.bytes); got != test.want {
			t.Errorf("formatSize(%d) = %q, want %q", test.bytes, got, test.want)
		}
	}
}
