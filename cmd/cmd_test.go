package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"portfolio-content/internal/export"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var docs = map[string]string{
	"projects/neon.md": `---
slug: neon-atlas
title: Neon Atlas
summary: Reimagined city navigation as a holographic layer.
role: Lead Architect
stack: [Go, WebGL]
dates: {start: "2047-01", end: "2047-06"}
featured: true
---
Commuters needed spatial cues.
`,
	"logs/shader.md": `---
id: 1
date: 2048-03-02
title: Shader sketch
tags: [gpu]
slug: shader-sketch
---
Noise fields on the GPU.
`,
	"logs/draft.md": `---
id: 2
date: 2048-04-01
title: Draft
tags: [gpu]
slug: draft
published: false
---
Not yet.
`,
	"essays/on-latency.md": `---
slug: on-latency
title: On Latency
synopsis: Why twelve milliseconds matter.
keywords: [latency]
date: 2049-03-03
---
Latency is a design material for every interface.
`,
}

// workspace 写出内容目录与配置文件，返回配置路径与工作目录。
func workspace(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, "content", name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	settings := "CONTENT_DIR: " + filepath.Join(dir, "content") + "\n" +
		"SITE_URL: https://paid.ca\n" +
		"LOG_LEVEL: none\n" +
		"DATABASE:\n  dsn: " + filepath.Join(dir, "index.db") + "\n" +
		"EXPORT:\n  dir: " + filepath.Join(dir, "public") + "\n"
	cfg := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(cfg, []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCheck(t *testing.T) {
	cfg, _ := workspace(t, docs)
	out, err := run(t, "--config", cfg, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"projects", "logs", "essays"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s:\n%s", want, out)
		}
	}
}

func TestCheckFailsOnInvalidDocument(t *testing.T) {
	files := map[string]string{}
	for k, v := range docs {
		files[k] = v
	}
	files["essays/bad.md"] = "---\nslug: Bad Slug\ntitle: x\n---\n"
	cfg, _ := workspace(t, files)
	_, err := run(t, "--config", cfg, "check")
	if err == nil || !strings.Contains(err.Error(), "bad.md") {
		t.Fatalf("want error naming bad.md, got %v", err)
	}
}

func TestContentFlagOverridesConfig(t *testing.T) {
	cfg, _ := workspace(t, docs)
	empty := t.TempDir()
	out, err := run(t, "--config", cfg, "--content", empty, "list", "projects", "--format", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("empty content dir should list nothing, got %s", out)
	}
}

func TestListJSONAndTag(t *testing.T) {
	cfg, _ := workspace(t, docs)
	out, err := run(t, "--config", cfg, "list", "logs", "--format", "json", "--tag", "gpu")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var logs []model.Log
	if err := json.Unmarshal([]byte(out), &logs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(logs) != 1 || logs[0].Slug != "shader-sketch" {
		t.Fatalf("unpublished log must be hidden: %+v", logs)
	}
}

func TestListTable(t *testing.T) {
	cfg, _ := workspace(t, docs)
	out, err := run(t, "--config", cfg, "list", "projects")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Projects") || !strings.Contains(out, "/work/neon-atlas") || !strings.Contains(out, "Neon Atlas *") {
		t.Fatalf("table:\n%s", out)
	}
}

func TestListRejectsUnknown(t *testing.T) {
	cfg, _ := workspace(t, docs)
	if _, err := run(t, "--config", cfg, "list", "posts"); err == nil {
		t.Fatal("unknown collection should fail")
	}
	if _, err := run(t, "--config", cfg, "list", "logs", "--format", "xml"); err == nil {
		t.Fatal("unknown format should fail")
	}
}

func TestExportThenSearch(t *testing.T) {
	cfg, dir := workspace(t, docs)
	out, err := run(t, "--config", cfg, "export")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	for _, name := range []string{export.IndexFile, export.SitemapFile, export.FeedFile} {
		if _, err := os.Stat(filepath.Join(dir, "public", name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
	if !strings.Contains(out, "index essays: 1 indexed") || !strings.Contains(out, "index: 3 entries (1 projects, 1 logs, 1 essays)") {
		t.Fatalf("export output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "search", "design", "material", "--format", "json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var hits []model.IndexEntry
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(hits) != 1 || hits[0].URL != "/writing/on-latency" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestSearchReindexDropsStaleRows(t *testing.T) {
	cfg, dir := workspace(t, docs)
	if out, err := run(t, "--config", cfg, "export"); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	if err := os.Remove(filepath.Join(dir, "content", "essays", "on-latency.md")); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", cfg, "search", "latency", "--reindex", "--format", "json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("removed essay still indexed: %s", out)
	}
}
