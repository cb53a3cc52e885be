package artifact

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
)

// packageDocument is the self-describing bundle serialized into an archive.
type packageDocument struct {
	Name      string                 `json:"name"`
	Artifacts []*core.Artifact       `json:"artifacts"`
	Pipelines [][]core.HistoryRecord `json:"pipelines"`
}

// ExportPackage serializes the package as a single JSON document inside a zip
// archive at path. A ".zip" suffix is appended when missing.
func (r *Registry) ExportPackage(pkg, path string) (string, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return "", err
	}
	doc := packageDocument{
		Name:      p.Name,
		Artifacts: p.List(""),
		Pipelines: p.Pipelines(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize package %q: %w", pkg, err)
	}

	if !strings.HasSuffix(path, ".zip") {
		path += ".zip"
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(p.Name + ".json")
	if err != nil {
		return "", err
	}
	if _, err := w.Write(data); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ImportPackage reads an archive written by ExportPackage and registers the
// contained package, replacing any package of the same name.
func (r *Registry) ImportPackage(path string) (*core.Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var data []byte
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		break
	}
	if data == nil {
		return nil, fmt.Errorf("no JSON document found in package archive %q", path)
	}

	var doc packageDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse package archive %q: %w", path, err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("package archive %q: missing package name", path)
	}

	pkg := core.NewPackage(doc.Name)
	for _, a := range doc.Artifacts {
		pkg.Add(a)
	}
	for _, pl := range doc.Pipelines {
		pkg.AddPipeline(pl)
	}

	r.mu.Lock()
	r.packages[doc.Name] = pkg
	if r.active == "" {
		r.active = doc.Name
	}
	r.mu.Unlock()
	return pkg, nil
}
