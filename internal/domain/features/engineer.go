package features

import (
	"errors"
	"slices"

	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/schema"
)

// Variant selects training or inference behaviour.
type Variant int

// Engineering variants.
const (
	Training Variant = iota
	Inference
)

func (v Variant) String() string {
	if v == Training {
		return "training"
	}
	return "inference"
}

// Summary counts the rows a training pass discarded.
type Summary struct {
	Input           int
	OutliersDropped int
	GPUDropped      int
	Bounds          Bounds
}

// Output returns the number of rows that survived.
func (s Summary) Output() int { return s.Input - s.OutliersDropped - s.GPUDropped }

// Engineer turns raw records into frames ordered by the schema column lists.
// It holds no mutable state and is safe for concurrent use.
type Engineer struct {
	trainColumns   []string
	predictColumns []string
}

// New builds an Engineer from the schema column lists.
func New(s *schema.Schema) *Engineer {
	return NewWithColumns(s.TrainColumns(), s.PredictColumns())
}

// NewWithColumns builds an Engineer from explicit column orders.
func NewWithColumns(train, predict []string) *Engineer {
	return &Engineer{trainColumns: slices.Clone(train), predictColumns: slices.Clone(predict)}
}

// Training engineers a labelled batch. Rows whose price falls outside the
// batch IQR band and rows with an unsupported GPU vendor are dropped.
func (e *Engineer) Training(records []model.RawRecord) (*model.Frame, Summary, error) {
	sum := Summary{Input: len(records)}
	if len(records) == 0 {
		return nil, sum, ErrEmptyBatch
	}

	rams := make([]int, len(records))
	weights := make([]float64, len(records))
	prices := make([]float64, len(records))
	for i, r := range records {
		if !r.HasPrice {
			return nil, sum, &MalformedFieldError{Row: i, Field: model.ColPrice, Err: errors.New("missing target")}
		}
		var err error
		if rams[i], err = ParseRAM(r.RAM); err != nil {
			return nil, sum, atRow(err, i)
		}
		if weights[i], err = ParseWeight(r.Weight); err != nil {
			return nil, sum, atRow(err, i)
		}
		prices[i] = r.Price
	}

	bounds, err := ComputeOutlierBounds(prices)
	if err != nil {
		return nil, sum, err
	}
	sum.Bounds = bounds

	rows := make([]model.EngineeredRecord, 0, len(records))
	for i, r := range records {
		if !bounds.Contains(r.Price) {
			sum.OutliersDropped++
			continue
		}
		er, err := engineer(r, rams[i], weights[i])
		if err != nil {
			return nil, sum, atRow(err, i)
		}
		if er.GPUCategory == GPUOther {
			sum.GPUDropped++
			continue
		}
		rows = append(rows, er)
	}

	f, err := project(rows, e.trainColumns, Training)
	return f, sum, err
}

// Inference engineers records for prediction. No row is ever dropped and
// the target is not required.
func (e *Engineer) Inference(records []model.RawRecord) (*model.Frame, error) {
	rows := make([]model.EngineeredRecord, 0, len(records))
	for i, r := range records {
		er, err := EngineerRecord(r)
		if err != nil {
			return nil, atRow(err, i)
		}
		er.HasPrice = false
		rows = append(rows, er)
	}
	return project(rows, e.predictColumns, Inference)
}

// EngineerRecord derives every feature of a single record.
func EngineerRecord(r model.RawRecord) (model.EngineeredRecord, error) {
	ram, err := ParseRAM(r.RAM)
	if err != nil {
		return model.EngineeredRecord{}, err
	}
	weight, err := ParseWeight(r.Weight)
	if err != nil {
		return model.EngineeredRecord{}, err
	}
	return engineer(r, ram, weight)
}

func engineer(r model.RawRecord, ram int, weight float64) (model.EngineeredRecord, error) {
	x, y, err := ParseResolution(r.ScreenResolution)
	if err != nil {
		return model.EngineeredRecord{}, err
	}
	ppi, err := PPI(x, y, r.Inches)
	if err != nil {
		return model.EngineeredRecord{}, err
	}

	return model.EngineeredRecord{
		Company:       r.Company,
		TypeName:      r.TypeName,
		RAM:           ram,
		Weight:        weight,
		Price:         r.Price,
		HasPrice:      r.HasPrice,
		Touchscreen:   Touchscreen(r.ScreenResolution),
		IPS:           IPS(r.ScreenResolution),
		PPI:           ppi,
		CPUCategory:   CategorizeCPU(r.CPU),
		SSD:           ExtractMemory(r.Memory, StorageSSD),
		HDD:           ExtractMemory(r.Memory, StorageHDD),
		FlashStorage:  ExtractMemory(r.Memory, StorageFlash),
		Hybrid:        ExtractMemory(r.Memory, StorageHybrid),
		GPUCategory:   CategorizeGPU(r.GPU),
		OpSysCategory: CategorizeOS(r.OpSys),
	}, nil
}

// project lays rows out in the given column order. A column no record can
// provide is a schema mismatch even when there are no rows.
func project(rows []model.EngineeredRecord, columns []string, v Variant) (*model.Frame, error) {
	var sample model.EngineeredRecord
	sample.HasPrice = v == Training
	var missing []string
	for _, c := range columns {
		if _, ok := sample.Value(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Columns: missing, Variant: v}
	}

	f := &model.Frame{Columns: slices.Clone(columns), Rows: make([][]any, len(rows))}
	for i, r := range rows {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j], _ = r.Value(c)
		}
		f.Rows[i] = row
	}
	return f, nil
}
