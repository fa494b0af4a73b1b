package yahb

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DensityImporter supplies the timestamp boundaries recorded by
// a calibration run.
type DensityImporter interface {
	ImportFirstTs(path string) (int64, error)
	ImportLastTs(path string) (int64, error)
}

// DensityRecord is what a calibration run leaves behind for the hybrid run.
type DensityRecord struct {
	FirstTs      int64 `yaml:"first_ts"`
	LastTs       int64 `yaml:"last_ts"`
	DeltaTs      int64 `yaml:"delta_ts"`
	Warehouses   int64 `yaml:"warehouses"`
	Transactions int64 `yaml:"transactions"`
	NewOrders    int64 `yaml:"new_orders"`
	ElapsedMS    int64 `yaml:"elapsed_ms"`
}

// NewDensityRecord captures the state of a calibration clock at the end of
// the run.
func NewDensityRecord(clock *Clock, transactions, elapsedMS int64) *DensityRecord {
	return &DensityRecord{
		FirstTs:      clock.StartTime(),
		LastTs:       clock.CurrentTs(),
		DeltaTs:      clock.DeltaTs(),
		Warehouses:   clock.Warehouses(),
		Transactions: transactions,
		NewOrders:    clock.NewOrders(),
		ElapsedMS:    elapsedMS,
	}
}

// TPS is the throughput observed during calibration.
func (self *DensityRecord) TPS() float64 {
	if self.ElapsedMS <= 0 {
		return 0
	}
	return float64(self.Transactions) * 1000.0 / float64(self.ElapsedMS)
}

func (self *DensityRecord) Validate() error {
	if self.LastTs < self.FirstTs {
		return NewConfigError("last timestamp %d before first %d", self.LastTs, self.FirstTs)
	}
	if self.DeltaTs <= 0 {
		return NewConfigError("delta_ts must be positive, got %d", self.DeltaTs)
	}
	if self.Transactions < 0 || self.ElapsedMS < 0 {
		return NewConfigError("negative counters in density record")
	}
	return nil
}

// FileDensityStore keeps a density record as a YAML file.
type FileDensityStore struct{}

func NewFileDensityStore() *FileDensityStore {
	return &FileDensityStore{}
}

func (self *FileDensityStore) Load(path string) (*DensityRecord, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read density record")
	}
	record := &DensityRecord{}
	if err = yaml.Unmarshal(content, record); err != nil {
		return nil, NewConfigError("malformed density record %s: %s", path, err)
	}
	if err = record.Validate(); err != nil {
		return nil, errors.Wrapf(err, "density record %s", path)
	}
	return record, nil
}

// Export writes the record atomically by renaming a temporary file.
func (self *FileDensityStore) Export(path string, record *DensityRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	content, err := yaml.Marshal(record)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err = ioutil.WriteFile(tmp, content, 0644); err != nil {
		return errors.Wrap(err, "write density record")
	}
	return os.Rename(tmp, path)
}

func (self *FileDensityStore) ImportFirstTs(path string) (int64, error) {
	record, err := self.Load(path)
	if err != nil {
		return 0, err
	}
	return record.FirstTs, nil
}

func (self *FileDensityStore) ImportLastTs(path string) (int64, error) {
	record, err := self.Load(path)
	if err != nil {
		return 0, err
	}
	return record.LastTs, nil
}
