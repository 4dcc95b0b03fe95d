package milvus

import (
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/raghavkhare98/documind/backend/go/internal/config"
)

// Scalar fields of the document collection.
const (
	FieldChunkID    = "chunk_id"
	FieldDocID      = "doc_id"
	FieldDocName    = "doc_name"
	FieldDocType    = "doc_type"
	FieldSource     = "source"
	FieldContent    = "content"
	FieldChunkIndex = "chunk_index"
)

// VarChar limits of the document collection.
const (
	MaxIDLength      = 256
	MaxDocNameLength = 512
	MaxContentLength = 65535
)

// FieldConfig describes one collection field.
type FieldConfig struct {
	Name         string
	DataType     string // "Int64", "VarChar", "FloatVector", ...
	IsPrimaryKey bool
	MaxLength    int
	Dim          int
	Description  string
}

// DocumentFields is the fixed field list of the chunk collection.
func DocumentFields(vectorField string, dim int) []FieldConfig {
	return []FieldConfig{
		{Name: FieldChunkID, DataType: "VarChar", IsPrimaryKey: true, MaxLength: MaxIDLength, Description: "content-addressed chunk id"},
		{Name: FieldDocID, DataType: "VarChar", MaxLength: MaxIDLength, Description: "parent document id"},
		{Name: FieldDocName, DataType: "VarChar", MaxLength: MaxDocNameLength, Description: "file name"},
		{Name: FieldDocType, DataType: "VarChar", MaxLength: MaxIDLength, Description: "documentation, rfc, research or manual"},
		{Name: FieldSource, DataType: "VarChar", MaxLength: MaxIDLength, Description: "source label"},
		{Name: FieldContent, DataType: "VarChar", MaxLength: MaxContentLength, Description: "chunk text"},
		{Name: FieldChunkIndex, DataType: "Int64", Description: "position of the chunk in its document"},
		{Name: vectorField, DataType: "FloatVector", Dim: dim, Description: "chunk embedding"},
	}
}

func buildField(fc FieldConfig) (*entity.Field, error) {
	field := entity.NewField().WithName(fc.Name).WithDescription(fc.Description)
	if fc.IsPrimaryKey {
		field = field.WithIsPrimaryKey(true)
	}

	switch fc.DataType {
	case "Int64":
		field = field.WithDataType(entity.FieldTypeInt64)
	case "VarChar":
		if fc.MaxLength <= 0 {
			return nil, fmt.Errorf("field %q: VarChar needs a max length", fc.Name)
		}
		field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(fc.MaxLength))
	case "FloatVector":
		if fc.Dim <= 0 {
			return nil, fmt.Errorf("field %q: vector dimension must be positive", fc.Name)
		}
		field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(fc.Dim))
	case "Float":
		field = field.WithDataType(entity.FieldTypeFloat)
	case "Double":
		field = field.WithDataType(entity.FieldTypeDouble)
	case "Bool":
		field = field.WithDataType(entity.FieldTypeBool)
	default:
		return nil, fmt.Errorf("unsupported data type: %s", fc.DataType)
	}
	return field, nil
}

// BuildSchema converts field descriptions into a collection schema.
func BuildSchema(name, description string, fields []FieldConfig) (*entity.Schema, error) {
	schema := entity.NewSchema().WithName(name).WithDescription(description)
	for _, fc := range fields {
		field, err := buildField(fc)
		if err != nil {
			return nil, err
		}
		schema = schema.WithField(field)
	}
	return schema, nil
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// BuildIndex creates the vector index described by cfg.
func BuildIndex(cfg config.IndexConfig) (entity.Index, error) {
	metricType := entity.MetricType(cfg.MetricType)

	switch cfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam(cfg.Params, "nlist", 1024))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam(cfg.Params, "M", 8), intParam(cfg.Params, "efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam(cfg.Params, "nlist", 1024))
	case "IVF_PQ":
		return entity.NewIndexIvfPQ(metricType, intParam(cfg.Params, "nlist", 1024),
			intParam(cfg.Params, "m", 16), intParam(cfg.Params, "nbits", 8))
	case "FLAT":
		return entity.NewIndexFlat(metricType)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.IndexType)
	}
}

// BuildSearchParam creates the search parameters matching the index type.
func BuildSearchParam(idx config.IndexConfig, search config.SearchConfig) (entity.SearchParam, error) {
	nprobe := search.NProbe
	if nprobe <= 0 {
		nprobe = 10
	}
	switch idx.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlatSearchParam(nprobe)
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8SearchParam(nprobe)
	case "IVF_PQ":
		return entity.NewIndexIvfPQSearchParam(nprobe)
	case "HNSW":
		ef := search.Ef
		if ef <= 0 {
			ef = 64
		}
		return entity.NewIndexHNSWSearchParam(ef)
	case "FLAT":
		return entity.NewIndexFlatSearchParam()
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", idx.IndexType)
	}
}
