package content

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
	"portfolio-content/internal/schema"
)

func projectDoc(slug, start string, extra string) string {
	fm := "---\n"
	if slug != "" {
		fm += "slug: " + slug + "\n"
	}
	return fm + `title: Neon Atlas
summary: Reimagined city navigation as a holographic layer.
role: Lead Architect
stack: [Go, WebGL]
dates:
  start: "` + start + `"
  end: "2047-06"
` + extra + "---\n\nA *city* map you can walk through.\n\n## Details\n\nMore text here.\n"
}

func logDoc(id int, date, slug, tags string, extra string) string {
	return "---\nid: " + strconv.Itoa(id) + "\ndate: " + date + "\ntitle: Log " + slug + "\nslug: " + slug + "\n" + tags + extra + "---\nShader notes for " + slug + ".\n"
}

func essayDoc(slug, date, extra string) string {
	return `---
slug: ` + slug + `
title: On ` + slug + `
synopsis: Why twelve milliseconds matter for perceived speed.
keywords: [latency, Performance]
date: ` + date + `
` + extra + "---\n" + strings.Repeat("word ", 400) + "\n"
}

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

// captureWarnings 把 logx 输出重定向到缓冲区。
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logx.SetOutput(&buf)
	logx.Init("warn", "pretty", "never")
	t.Cleanup(func() {
		logx.SetOutput(nil)
		logx.Init("info", "pretty", "never")
	})
	return &buf
}

func TestProjectsSortedAndDefaults(t *testing.T) {
	fsys := fstest.MapFS{
		"projects/old.md":    file(projectDoc("old-one", "2046-03", "")),
		"projects/new.mdx":   file(projectDoc("new-one", "2047-01", "")),
		"projects/draft.md":  file(projectDoc("draft", "2048-01", "published: false\n")),
		"projects/notes.txt": file("not content"),
	}
	lib := New(fsys, Options{})

	all, err := lib.Projects.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 published projects, got %d", len(all))
	}
	if all[0].Slug != "new-one" || all[1].Slug != "old-one" {
		t.Fatalf("wrong order: %s, %s", all[0].Slug, all[1].Slug)
	}
	if all[0].Featured {
		t.Fatal("featured must default to false")
	}
	if all[0].Excerpt != "A city map you can walk through." {
		t.Fatalf("excerpt = %q", all[0].Excerpt)
	}
	if all[0].ReadingTime != 1 || all[0].File != "projects/new.mdx" {
		t.Fatalf("derived fields: %+v", all[0].Body)
	}

	loaded, err := lib.Projects.Load()
	if err != nil || len(loaded) != 3 {
		t.Fatalf("Load must return unpublished records too: %d %v", len(loaded), err)
	}
}

func TestSortedDescendingProperty(t *testing.T) {
	fsys := fstest.MapFS{
		"logs/a.md": file(logDoc(1, "2048-03-02", "a", "tags: [gpu]\n", "")),
		"logs/b.md": file(logDoc(2, "March 9, 2048", "b", "tags: [gpu]\n", "")),
		"logs/c.md": file(logDoc(3, "2047-12-31T10:00:00Z", "c", "tags: [gpu]\n", "")),
		"logs/d.md": file(logDoc(4, "2048-03-02", "d", "tags: [gpu]\n", "")),
	}
	all, err := New(fsys, Options{}).Logs.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Date.Before(all[i].Date) {
			t.Fatalf("not descending at %d: %v < %v", i, all[i-1].Date, all[i].Date)
		}
	}
	if all[0].Slug != "b" || all[3].Slug != "c" {
		t.Fatalf("unexpected order: %s ... %s", all[0].Slug, all[3].Slug)
	}
	// 日期相同保持文件名顺序
	if all[1].Slug != "a" || all[2].Slug != "d" {
		t.Fatalf("ties must keep load order: %s, %s", all[1].Slug, all[2].Slug)
	}
}

func TestSlugFallsBackToFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"projects/holo-grid.md": file(projectDoc("", "2047-01", "")),
	}
	p, found, err := New(fsys, Options{}).Projects.BySlug("holo-grid")
	if err != nil || !found {
		t.Fatalf("BySlug: found=%v err=%v", found, err)
	}
	if p.Slug != "holo-grid" {
		t.Fatalf("slug = %q", p.Slug)
	}
}

func TestMissingTagsAbortsLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"logs/good.md": file(logDoc(1, "2048-01-01", "good", "tags: [gpu]\n", "")),
		"logs/bad.md":  file(logDoc(2, "2048-01-02", "bad", "", "")),
	}
	_, err := New(fsys, Options{}).Logs.All()
	var de *DocumentError
	if !errors.As(err, &de) {
		t.Fatalf("expected DocumentError, got %v", err)
	}
	if de.File != "logs/bad.md" || de.Collection != model.Logs {
		t.Fatalf("wrong file: %+v", de)
	}
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError inside: %v", err)
	}
	v, ok := ve.Field("tags")
	if !ok || v.Rule != "min" || v.Param != "1" {
		t.Fatalf("tags violation: %+v", ve)
	}
	if !strings.Contains(err.Error(), "tags") || !strings.Contains(err.Error(), "logs/bad.md") {
		t.Fatalf("error should name file and field: %v", err)
	}
}

func TestBadSlugAbortsLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"projects/x.md": file(projectDoc(`"My Project!"`, "2047-01", "")),
	}
	_, err := New(fsys, Options{}).Projects.Slugs()
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if v, ok := ve.Field("slug"); !ok || v.Rule != "slug" {
		t.Fatalf("slug violation: %v", ve)
	}
}

func TestReservedSlugAbortsLoad(t *testing.T) {
	for name, fsys := range map[string]fstest.MapFS{
		"explicit": {"essays/x.md": file(essayDoc("search", "2049-03-03", ""))},
		"filename": {"projects/featured.md": file(projectDoc("", "2047-01", ""))},
	} {
		t.Run(name, func(t *testing.T) {
			lib := New(fsys, Options{})
			_, err := lib.Projects.All()
			if err == nil {
				_, err = lib.Essays.All()
			}
			var ve *schema.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if v, ok := ve.Field("slug"); !ok || v.Rule != "unreserved" {
				t.Fatalf("slug violation: %v", ve)
			}
		})
	}
}

func TestTypeErrorAbortsLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"projects/x.md": file(projectDoc("x", "2047-01", "featured: \"yes\"\n")),
	}
	_, err := New(fsys, Options{}).Projects.All()
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if v, ok := ve.Field("featured"); !ok || v.Rule != "type" || v.Param != "bool" {
		t.Fatalf("featured violation: %v", ve)
	}
}

func TestCoercedScalarsAreRejected(t *testing.T) {
	tests := []struct {
		name  string
		fsys  fstest.MapFS
		field string
		logs  bool
	}{
		{"published no", fstest.MapFS{
			"projects/a.md": file(projectDoc("a-one", "2047-01", "published: \"no\"\n")),
			"projects/b.md": file(projectDoc("b-one", "2047-02", "")),
		}, "published", false},
		{"featured yes", fstest.MapFS{
			"projects/b.md": file(projectDoc("b-one", "2047-02", "featured: \"yes\"\n")),
		}, "featured", false},
		{"numeric title", fstest.MapFS{
			"logs/n.md": file("---\nid: 1\ndate: 2048-03-02\ntitle: 12345\nslug: n\ntags: [gpu]\n---\nbody\n"),
		}, "title", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := New(tt.fsys, Options{})
			var err error
			if tt.logs {
				_, err = lib.Logs.All()
			} else {
				_, err = lib.Projects.All()
			}
			var ve *schema.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			v, ok := ve.Field(tt.field)
			if !ok || v.Rule != "type" {
				t.Fatalf("expected type violation on %s: %v", tt.field, ve)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("error should name the field: %v", err)
			}
		})
	}
}

func TestMissingDirectoryIsEmpty(t *testing.T) {
	buf := captureWarnings(t)
	lib := New(fstest.MapFS{"projects/.keep": file("")}, Options{})

	essays, err := lib.Essays.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(essays) != 0 {
		t.Fatalf("want empty, got %d", len(essays))
	}
	if !strings.Contains(buf.String(), ErrDirMissing.Error()) {
		t.Fatalf("missing warning: %q", buf.String())
	}

	buf.Reset()
	if _, err := lib.Projects.All(); err != nil {
		t.Fatalf("All: %v", err)
	}
	if !strings.Contains(buf.String(), ErrDirEmpty.Error()) {
		t.Fatalf("empty warning: %q", buf.String())
	}
}

func TestBySlugNotFound(t *testing.T) {
	fsys := fstest.MapFS{
		"essays/one.md":   file(essayDoc("one", "2049-03-03", "")),
		"essays/draft.md": file(essayDoc("draft", "2049-03-04", "published: false\n")),
	}
	lib := New(fsys, Options{})
	slugs, err := lib.Essays.Slugs()
	if err != nil {
		t.Fatalf("Slugs: %v", err)
	}
	for _, s := range []string{"one", "draft", "nope"} {
		e, found, err := lib.Essays.BySlug(s)
		if err != nil {
			t.Fatalf("BySlug(%q): %v", s, err)
		}
		inSlugs := false
		for _, x := range slugs {
			inSlugs = inSlugs || x == s
		}
		if found != inSlugs {
			t.Fatalf("BySlug(%q) found=%v, in slugs=%v", s, found, inSlugs)
		}
		if found && e.Slug != s {
			t.Fatalf("slug mismatch: %q", e.Slug)
		}
		if !found && e != nil {
			t.Fatalf("not found must return zero value")
		}
	}
}

func TestEssayReadingTimeOverride(t *testing.T) {
	fsys := fstest.MapFS{
		"essays/a.md": file(essayDoc("a", "2049-01-01", "")),
		"essays/b.md": file(essayDoc("b", "2049-01-02", "readingTime: 9\n")),
	}
	all, err := New(fsys, Options{}).Essays.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all[0].Slug != "b" || all[0].Body.ReadingTime != 9 {
		t.Fatalf("override lost: %+v", all[0].Body.ReadingTime)
	}
	if all[1].Body.ReadingTime != 2 {
		t.Fatalf("400 words should read in 2 minutes, got %d", all[1].Body.ReadingTime)
	}
}

func TestFeaturedTagsAndSearch(t *testing.T) {
	fsys := fstest.MapFS{
		"logs/a.md":   file(logDoc(1, "2048-01-01", "a", "tags: [webgl, shaders]\n", "featured: true\n")),
		"logs/b.md":   file(logDoc(2, "2048-01-02", "b", "tags: [WebGL, audio]\n", "")),
		"logs/c.md":   file(logDoc(3, "2048-01-03", "c", "tags: [hidden]\n", "published: false\n")),
		"essays/e.md": file(essayDoc("latency", "2049-01-01", "")),
	}
	lib := New(fsys, Options{})

	featured, err := lib.Logs.Featured()
	if err != nil || len(featured) != 1 || featured[0].Slug != "a" {
		t.Fatalf("Featured: %v %v", featured, err)
	}

	tagged, err := lib.Logs.ByTag("webgl")
	if err != nil || len(tagged) != 1 || tagged[0].Slug != "a" {
		t.Fatalf("ByTag must match exactly: %v %v", tagged, err)
	}

	tags, err := lib.Logs.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if strings.Join(tags, ",") != "WebGL,audio,shaders,webgl" {
		t.Fatalf("Tags = %v", tags)
	}

	for _, q := range []string{"LATENCY", "perceived", "performance", "WORD"} {
		got, err := lib.Essays.Search(q)
		if err != nil || len(got) != 1 {
			t.Fatalf("Search(%q) = %d %v", q, len(got), err)
		}
	}
	if got, _ := lib.Essays.Search("quantum"); len(got) != 0 {
		t.Fatalf("unexpected match: %v", got)
	}
}

func TestDuplicateSlugs(t *testing.T) {
	fsys := fstest.MapFS{
		"logs/a.md": file(logDoc(1, "2048-01-01", "same", "tags: [x]\n", "")),
		"logs/b.md": file(logDoc(2, "2048-01-02", "same", "tags: [x]\n", "")),
	}
	buf := captureWarnings(t)
	all, err := New(fsys, Options{}).Logs.All()
	if err != nil || len(all) != 2 {
		t.Fatalf("lenient load: %d %v", len(all), err)
	}
	if !strings.Contains(buf.String(), "same") {
		t.Fatalf("duplicate not logged: %q", buf.String())
	}

	_, err = New(fsys, Options{StrictSlugs: true}).Logs.All()
	var dup *DuplicateSlugError
	if !errors.As(err, &dup) || dup.Slug != "same" || len(dup.Files) != 2 {
		t.Fatalf("strict load: %v", err)
	}
}

func TestCacheInvalidatedOnChange(t *testing.T) {
	fsys := fstest.MapFS{
		"logs/a.md": file(logDoc(1, "2048-01-01", "a", "tags: [x]\n", "")),
	}
	lib := New(fsys, Options{Cache: true})

	first, err := lib.Logs.All()
	if err != nil || len(first) != 1 {
		t.Fatalf("first load: %v", err)
	}
	second, _ := lib.Logs.All()
	if first[0] != second[0] {
		t.Fatal("unchanged directory should be served from cache")
	}

	fsys["logs/b.md"] = &fstest.MapFile{
		Data:    []byte(logDoc(2, "2048-01-02", "b", "tags: [x]\n", "")),
		ModTime: time.Date(2048, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	third, err := lib.Logs.All()
	if err != nil || len(third) != 2 {
		t.Fatalf("cache not invalidated: %d %v", len(third), err)
	}

	fsys["logs/b.md"] = file(logDoc(2, "2048-01-02", "b", "", ""))
	if _, err := lib.Logs.All(); err == nil {
		t.Fatal("changed invalid document must fail even with cache")
	}

	uncached := New(fsys, Options{})
	if _, err := uncached.Projects.Fingerprint(); err != nil {
		t.Fatalf("Fingerprint on missing dir: %v", err)
	}
}
