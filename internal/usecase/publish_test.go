package usecase

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CitationWatch/internal/infrastructure/mediawiki"
)

func TestPublishSkipsUnchangedPage(t *testing.T) {
	t.Parallel()

	pages := newFakePages(map[string]string{"Report": "same"})
	changed, err := NewPublisher(pages, false, nil, nil).Publish(context.Background(), "Report", "same")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, pages.saved)
}

func TestPublishSavesChangedPage(t *testing.T) {
	t.Parallel()

	pages := newFakePages(map[string]string{"Report": "old"})
	changed, err := NewPublisher(pages, false, nil, nil).Publish(context.Background(), "Report", "new")
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, pages.saved, 1)
	assert.Equal(t, savedPage{title: "Report", text: "new", summary: "Updating Report with new content"}, pages.saved[0])
}

func TestPublishNeverCreatesPages(t *testing.T) {
	t.Parallel()

	pages := newFakePages(map[string]string{})
	_, err := NewPublisher(pages, false, nil, nil).Publish(context.Background(), "Report", "new")
	require.ErrorIs(t, err, mediawiki.ErrPageMissing)
	assert.Empty(t, pages.saved)
}

func TestPublishDryRunWritesOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	pages := newFakePages(map[string]string{"Report": "old"})
	changed, err := NewPublisher(pages, true, &out, nil).Publish(context.Background(), "Report", "new")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, pages.saved)
	assert.Equal(t, "=== Report ===\nnew\n", out.String())
}

func TestPublishPropagatesSaveError(t *testing.T) {
	t.Parallel()

	pages := newFakePages(map[string]string{"Report": "old"})
	pages.saveErr = errBoom
	_, err := NewPublisher(pages, false, nil, nil).Publish(context.Background(), "Report", "new")
	require.ErrorIs(t, err, errBoom)
}
