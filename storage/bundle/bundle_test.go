package bundle

import (
	"bytes"
	"testing"

	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/storage"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := storage.NewMemory()

	var ids []cidutil.CID
	payloads := [][]byte{[]byte("block one"), []byte("block two"), []byte("block three")}
	for _, p := range payloads {
		id, err := src.Put(p)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, id)
	}

	var buf bytes.Buffer
	opts := ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cidutil.CID{"spec": ids[0], "rb": ids[1]},
	}
	if err := Export(&buf, src, ids, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := storage.NewMemory()
	if err := Import(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatalf("Import: %v", err)
	}
	for i, id := range ids {
		got, err := dst.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if !bytes.Equal(got, payloads[i]) {
			t.Fatalf("payload %d mismatch after import", i)
		}
	}
}

func TestExportDeterministic(t *testing.T) {
	src := storage.NewMemory()
	var ids []cidutil.CID
	for _, p := range [][]byte{[]byte("zz"), []byte("aa"), []byte("mm")} {
		id, err := src.Put(p)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, id)
	}

	render := func(order []cidutil.CID) []byte {
		var buf bytes.Buffer
		if err := Export(&buf, src, order, ExportOptions{IncludeIndex: true}); err != nil {
			t.Fatalf("Export: %v", err)
		}
		return buf.Bytes()
	}

	a := render(ids)
	b := render([]cidutil.CID{ids[2], ids[0], ids[1]})
	if !bytes.Equal(a, b) {
		t.Fatalf("bundle bytes must not depend on input CID order")
	}
}

func TestImportRejectsTamperedBlock(t *testing.T) {
	src := storage.NewMemory()
	id, err := src.Put([]byte("authentic"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, src, []cidutil.CID{id}, ExportOptions{}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Flip one payload byte inside the archive.
	raw := buf.Bytes()
	idx := bytes.Index(raw, []byte("authentic"))
	if idx < 0 {
		t.Fatalf("payload not found in archive")
	}
	raw[idx] ^= 0xff

	dst := storage.NewMemory()
	err = Import(bytes.NewReader(raw), dst)
	if !storage.IsIntegrityViolation(err) {
		t.Fatalf("Import of tampered bundle: got %v, want integrity violation", err)
	}
}

func TestExportMissingBlock(t *testing.T) {
	src := storage.NewMemory()
	missing := cidutil.Sum([]byte("not stored"))
	var buf bytes.Buffer
	if err := Export(&buf, src, []cidutil.CID{missing}, ExportOptions{}); !storage.IsNotFound(err) {
		t.Fatalf("Export with missing block: got %v, want ErrNotFound", err)
	}
}
