package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"campus-ml-go/internal/testutil"
	"campus-ml-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCommandSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, testutil.BuildPDF("Contact jane@example.com 5551234567"), 0o644))

	out, err := execute(t, "parse", "--backend", "pages", path)
	require.NoError(t, err, out)

	var profile types.CandidateProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile), "单个文件输出候选人 JSON")
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "5551234567", profile.Phone)
}

func TestParseCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	require.NoError(t, os.WriteFile(good, testutil.BuildPDF("Contact jane@example.com"), 0o644))
	missing := filepath.Join(dir, "missing.pdf")

	out, err := execute(t, "parse", "--backend", "pages", good, missing)
	assert.Error(t, err, "有文件失败时返回错误")

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, good, results[0].File, "结果按输入顺序输出")
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
}

func TestGapCommand(t *testing.T) {
	out, err := execute(t, "gap", "--have", "python,docker", "--need", "python,kubernetes")
	require.NoError(t, err)

	var res types.SkillGapResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"Kubernetes"}, res.Missing)
	assert.Equal(t, 50.0, res.MatchPercentage)
}
