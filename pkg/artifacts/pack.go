package artifacts

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rowhouse-labs/docket/pkg/canonical"
)

const (
	packVersion  = "1.0"
	manifestName = "manifest.json"
)

// PackManifest is written as manifest.json inside an evidence pack. It
// names every file in the pack together with its sha256, so a recipient
// can detect any alteration without docket installed.
type PackManifest struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	CaseID     string            `json:"case_id"`
	FileHashes map[string]string `json:"file_hashes"`
}

// WritePack writes a deterministic tar.gz evidence pack. Identical
// inputs (same files, same exportedAt) produce identical bytes: file
// names are sorted, tar headers carry fixed mode, epoch mtime, and
// zero uid/gid, and the caller supplies the export time.
func WritePack(w io.Writer, caseID string, exportedAt time.Time, files map[string][]byte) error {
	gw := gzip.NewWriter(w)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		if name == manifestName {
			return fmt.Errorf("file name %q is reserved", manifestName)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	hashes := make(map[string]string, len(names))
	for _, name := range names {
		hashes[name] = canonical.HashBytes(files[name])
	}

	manifest := PackManifest{
		Version:    packVersion,
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		CaseID:     caseID,
		FileHashes: hashes,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	// Manifest first, then files in sorted order.
	if err := writeTarEntry(tw, manifestName, manifestBytes); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeTarEntry(tw, name, files[name]); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return gw.Close()
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0o644,
		ModTime: time.Unix(0, 0),
		Uid:     0,
		Gid:     0,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write data %s: %w", name, err)
	}
	return nil
}

// ReadPack reads an evidence pack and verifies its integrity in both
// directions: every file the manifest names must be present with a
// matching hash, and every file in the pack must be named by the
// manifest. It returns the manifest and the file contents.
func ReadPack(r io.Reader) (*PackManifest, map[string][]byte, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)

	var manifest *PackManifest
	files := make(map[string][]byte)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("tar read: %w", err)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}

		if hdr.Name == manifestName {
			var m PackManifest
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, nil, fmt.Errorf("decode manifest: %w", err)
			}
			manifest = &m
			continue
		}
		files[hdr.Name] = data
	}

	if manifest == nil {
		return nil, nil, fmt.Errorf("%s not found in pack", manifestName)
	}

	for name, want := range manifest.FileHashes {
		data, ok := files[name]
		if !ok {
			return nil, nil, fmt.Errorf("file %s listed in manifest but missing from pack", name)
		}
		if got := canonical.HashBytes(data); got != want {
			return nil, nil, fmt.Errorf("hash mismatch for %s: expected %s, got %s", name, want, got)
		}
	}
	for name := range files {
		if _, ok := manifest.FileHashes[name]; !ok {
			return nil, nil, fmt.Errorf("file %s present in pack but not in manifest", name)
		}
	}

	return manifest, files, nil
}
