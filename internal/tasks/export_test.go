package tasks

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestRenderChecklist(t *testing.T) {
	t.Parallel()

	got := RenderChecklist("All tasks", []Task{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", Completed: true},
	})
	require.Equal(t, "# All tasks\n\n- [ ] A <!-- id:1 -->\n- [x] B <!-- id:2 -->\n", got)
}

func TestRenderChecklistEmpty(t *testing.T) {
	t.Parallel()

	require.Contains(t, RenderChecklist("Completed tasks", nil), "_No tasks._")
}

func TestExportChecklistCreatesThenOverwrites(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := "/exports/today/tasks.md"

	created, err := ExportChecklist(fs, path, "Tasks", []Task{{ID: 1, Title: "A"}}, false)
	require.NoError(t, err)
	require.True(t, created)

	created, err = ExportChecklist(fs, path, "Tasks", []Task{{ID: 1, Title: "A", Completed: true}}, false)
	require.NoError(t, err)
	require.False(t, created)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Contains(t, string(data), "- [x] A")
}

func TestExportChecklistKeepsExisting(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tasks.md", []byte("hand edited\n"), 0o600))

	created, err := ExportChecklist(fs, "/tasks.md", "Tasks", []Task{{ID: 1, Title: "A"}}, true)
	require.NoError(t, err)
	require.False(t, created)

	data, err := afero.ReadFile(fs, "/tasks.md")
	require.NoError(t, err)
	require.Equal(t, "hand edited\n", string(data))
}

func TestExportChecklistRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := ExportChecklist(afero.NewMemMapFs(), "  ", "Tasks", nil, false)
	require.Error(t, err)
}
