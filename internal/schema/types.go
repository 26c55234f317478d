package schema

// #region schema
// DefaultTarget is the target column used when the schema file omits one.
const DefaultTarget = "Churn"

// Schema is the declarative column-role mapping that drives validation,
// cleanup and feature encoding.
type Schema struct {
	Columns             []Column // every expected raw column, in order
	NumericalFeatures   []string
	CategoricalFeatures []string
	ChangeColumnDtype   string // coerced to numeric during cleanup
	DropColumns         string // identifier column removed during cleanup
	TargetColumn        string
}

// Column is one entry of the schema's columns list.
type Column struct {
	Name  string
	Dtype string
}

// #endregion schema

// #region file-format
// document mirrors the YAML layout of schema.yaml.
type document struct {
	Columns             []map[string]string `yaml:"columns"`
	NumericalFeatures   []string            `yaml:"numerical_features"`
	CategoricalFeatures []string            `yaml:"categorical_features"`
	ChangeColumnDtype   string              `yaml:"change_column_dtype"`
	DropColumns         string              `yaml:"drop_columns"`
	TargetColumn        string              `yaml:"target_column,omitempty"`
}

// #endregion file-format
