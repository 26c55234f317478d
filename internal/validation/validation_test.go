package validation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/ingestion"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

const doc = `
columns:
  - customerID: object
  - tenure: int
  - Contract: category
  - Churn: category
numerical_features: [tenure]
categorical_features: [Contract]
drop_columns: customerID
`

func parse(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func csvFrame(t *testing.T, s string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(s))
	require.NoError(t, err)
	return f
}

func TestCheckPasses(t *testing.T) {
	good := csvFrame(t, "customerID,tenure,Contract,Churn\na,1,One year,No\n")
	r := Check(parse(t), map[string]*frame.Frame{"train": good, "test": good})
	assert.True(t, r.Status)
	assert.Empty(t, r.Message)
	assert.Len(t, r.Splits, 2)
}

func TestCheckReportsMissingColumns(t *testing.T) {
	good := csvFrame(t, "customerID,tenure,Contract,Churn\na,1,One year,No\n")
	bad := csvFrame(t, "customerID,Contract,Churn\na,One year,No\n")
	r := Check(parse(t), map[string]*frame.Frame{"train": good, "test": bad})

	assert.False(t, r.Status)
	assert.Contains(t, r.Message, "test dataframe has 3 columns, expected 4")
	assert.Contains(t, r.Message, "missing numerical columns: tenure")
	assert.NotContains(t, r.Message, "train")
	assert.Equal(t, []string{"tenure"}, r.Splits[1].MissingNumerical)
}

func TestValidateWritesReport(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.csv")
	test := filepath.Join(dir, "test.csv")
	require.NoError(t, frame.WriteCSVFile(train, csvFrame(t, "customerID,tenure,Contract,Churn\na,1,One year,No\n")))
	require.NoError(t, frame.WriteCSVFile(test, csvFrame(t, "customerID,tenure,Churn\nb,2,Yes\n")))

	report := filepath.Join(dir, "validation", "report.yaml")
	art, err := NewValidator(parse(t), report, zap.NewNop()).
		Validate(context.Background(), ingestion.Artifact{TrainPath: train, TestPath: test})
	require.NoError(t, err, "a failed check is not an error")
	assert.False(t, art.Status)
	assert.Contains(t, art.Message, "missing categorical columns: Contract")

	buf, err := os.ReadFile(report)
	require.NoError(t, err)
	var got Report
	require.NoError(t, yaml.Unmarshal(buf, &got))
	assert.False(t, got.Status)
	assert.Equal(t, art.Message, got.Message)
}

func TestValidateMissingFile(t *testing.T) {
	_, err := NewValidator(parse(t), "", zap.NewNop()).
		Validate(context.Background(), ingestion.Artifact{TrainPath: "/nope/train.csv"})
	assert.Error(t, err)
}
