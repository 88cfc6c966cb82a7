package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRunFlags() {
	runICPFile = ""
	runIndustries = nil
	runGeographies = nil
	runTitles = nil
	runNotes = ""
}

func TestLoadICP_RequiresTargeting(t *testing.T) {
	resetRunFlags()
	_, err := loadICP()
	assert.Error(t, err)
}

func TestLoadICP_FromFlags(t *testing.T) {
	resetRunFlags()
	runIndustries = []string{"Manufacturing"}
	runGeographies = []string{"Texas"}

	icp, err := loadICP()
	require.NoError(t, err)
	assert.Equal(t, []string{"Manufacturing"}, icp.Industries)
	assert.Equal(t, []string{"Texas"}, icp.Geographies)
}

func TestLoadICP_FromFileWithFlagOverride(t *testing.T) {
	resetRunFlags()
	path := filepath.Join(t.TempDir(), "icp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"industries": ["Logistics"],
		"target_titles": ["Owner"],
		"max_companies": 5
	}`), 0o600))
	runICPFile = path
	runIndustries = []string{"Manufacturing"}

	icp, err := loadICP()
	require.NoError(t, err)
	assert.Equal(t, []string{"Manufacturing"}, icp.Industries, "flag overrides file")
	assert.Equal(t, []string{"Owner"}, icp.TargetTitles)
	assert.Equal(t, 5, icp.MaxCompanies)
}

func TestLoadICP_BadFile(t *testing.T) {
	resetRunFlags()
	runICPFile = "/nonexistent/icp.json"
	_, err := loadICP()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	runICPFile = path
	_, err = loadICP()
	assert.Error(t, err)
}
