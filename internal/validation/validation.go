package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/ingestion"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

// ErrFailed is returned by later stages when handed a failed validation.
var ErrFailed = errors.New("data validation failed")

// #region types
// Artifact is the outcome of validating the train and test splits. A false
// Status is a normal outcome, not an error.
type Artifact struct {
	Status     bool   `yaml:"validation_status"`
	Message    string `yaml:"message"`
	ReportPath string `yaml:"-"`
}

// Report is the YAML document written next to the artifacts.
type Report struct {
	Status  bool         `yaml:"validation_status"`
	Message string       `yaml:"message"`
	Splits  []SplitCheck `yaml:"splits"`
}

// SplitCheck records the checks for one split.
type SplitCheck struct {
	Name               string   `yaml:"name"`
	Columns            int      `yaml:"columns"`
	ExpectedColumns    int      `yaml:"expected_columns"`
	MissingNumerical   []string `yaml:"missing_numerical,omitempty"`
	MissingCategorical []string `yaml:"missing_categorical,omitempty"`
}

func (c SplitCheck) ok() bool {
	return c.Columns == c.ExpectedColumns && len(c.MissingNumerical) == 0 && len(c.MissingCategorical) == 0
}

// #endregion types

// Validator checks ingested splits against the schema.
type Validator struct {
	schema     *schema.Schema
	reportPath string
	logger     *zap.Logger
}

func NewValidator(s *schema.Schema, reportPath string, logger *zap.Logger) *Validator {
	return &Validator{schema: s, reportPath: reportPath, logger: logger.Named("validation")}
}

// Validate reads both splits, checks them and writes the report.
func (v *Validator) Validate(_ context.Context, in ingestion.Artifact) (Artifact, error) {
	train, err := frame.ReadCSVFile(in.TrainPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("read train split: %w", err)
	}
	test, err := frame.ReadCSVFile(in.TestPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("read test split: %w", err)
	}

	report := Check(v.schema, map[string]*frame.Frame{"train": train, "test": test})
	if err := writeReport(v.reportPath, report); err != nil {
		return Artifact{}, err
	}

	level := v.logger.Info
	if !report.Status {
		level = v.logger.Warn
	}
	level("validation complete", zap.Bool("status", report.Status), zap.String("message", report.Message))
	return Artifact{Status: report.Status, Message: report.Message, ReportPath: v.reportPath}, nil
}

// Check runs the column-count and feature-presence checks on each split.
// Splits are checked in train, test order.
func Check(s *schema.Schema, splits map[string]*frame.Frame) Report {
	expected := len(s.Columns)
	report := Report{Status: true}
	var msgs []string
	for _, name := range []string{"train", "test"} {
		f, ok := splits[name]
		if !ok {
			continue
		}
		c := SplitCheck{Name: name, Columns: len(f.Columns()), ExpectedColumns: expected}
		if expected == 0 {
			c.ExpectedColumns = c.Columns
		}
		for _, col := range s.NumericalFeatures {
			if !f.Has(col) {
				c.MissingNumerical = append(c.MissingNumerical, col)
			}
		}
		for _, col := range s.CategoricalFeatures {
			if !f.Has(col) {
				c.MissingCategorical = append(c.MissingCategorical, col)
			}
		}
		if c.Columns != c.ExpectedColumns {
			msgs = append(msgs, fmt.Sprintf("%s dataframe has %d columns, expected %d", name, c.Columns, c.ExpectedColumns))
		}
		if len(c.MissingNumerical) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s dataframe is missing numerical columns: %s", name, strings.Join(c.MissingNumerical, ", ")))
		}
		if len(c.MissingCategorical) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s dataframe is missing categorical columns: %s", name, strings.Join(c.MissingCategorical, ", ")))
		}
		report.Status = report.Status && c.ok()
		report.Splits = append(report.Splits, c)
	}
	report.Message = strings.Join(msgs, "; ")
	return report
}

func writeReport(path string, r Report) error {
	if path == "" {
		return nil
	}
	buf, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal validation report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for validation report: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}
	return nil
}
