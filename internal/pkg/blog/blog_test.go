package blog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePost(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadAllParsesFrontmatterAndSorts(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "older.md", `---
title: Older Post
description: The first one.
author: Atelier Logos
date: 2026-01-05
slug: older-post
tags:
  - product
---

Plain **markdown** body.
`)
	writePost(t, dir, "newer.md", `---
title: Newer Post
date: 2026-02-01
---

Second body.
`)
	writePost(t, dir, "notes.txt", "ignored, not markdown")

	loader := NewLoader(dir)
	posts, err := loader.LoadAll()
	require.NoError(t, err)
	require.Len(t, posts, 2)

	// Newest first.
	assert.Equal(t, "Newer Post", posts[0].Title)
	assert.Equal(t, "Older Post", posts[1].Title)

	older := posts[1]
	assert.Equal(t, "older-post", older.Slug)
	assert.Equal(t, "The first one.", older.Description)
	assert.Equal(t, "Atelier Logos", older.Author)
	assert.Equal(t, []string{"product"}, older.Tags)
	assert.Equal(t, 2026, older.Date.Year())
	assert.Contains(t, string(older.HTML), "<strong>markdown</strong>")
}

func TestLoadFileSlugFallsBackToTitle(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "post.md", `---
title: Ship It Already
---

Body.
`)

	loader := NewLoader(dir)
	posts, err := loader.LoadAll()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "ship-it-already", posts[0].Slug)
}

func TestLoadFileWithoutFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "raw-notes.md", "Just markdown, no header.\n")

	loader := NewLoader(dir)
	posts, err := loader.LoadAll()
	require.NoError(t, err)
	require.Len(t, posts, 1)

	// Title falls back to the filename.
	assert.Equal(t, "raw-notes", posts[0].Title)
	assert.Contains(t, string(posts[0].HTML), "Just markdown")
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "post.md", `---
title: Findable
slug: findable
---

Body.
`)

	loader := NewLoader(dir)

	post, err := loader.Get("findable")
	require.NoError(t, err)
	assert.Equal(t, "Findable", post.Title)

	_, err = loader.Get("missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing"))
}

func TestReloadPicksUpNewPosts(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "first.md", "First.\n")

	loader := NewLoader(dir)
	posts, err := loader.LoadAll()
	require.NoError(t, err)
	require.Len(t, posts, 1)

	writePost(t, dir, "second.md", "Second.\n")

	// Cached until an explicit reload.
	posts, err = loader.LoadAll()
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	posts, err = loader.Reload()
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}
