package shared_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/shared"
)

func TestFoldName(t *testing.T) {
	require.Equal(t, "admin", shared.FoldName("Admin"))
	require.Equal(t, "admin", shared.FoldName("  ADMIN  "))
	require.Equal(t, "josé", shared.FoldName("José"))
}

func TestSameName(t *testing.T) {
	require.True(t, shared.SameName("Admin", "admin"))
	require.True(t, shared.SameName("Viewer", "VIEWER"))
	require.False(t, shared.SameName("Viewer", "Editor"))
}
