// Package checkpoint stores model parameter values in a bolt
// database, so an interrupted estimation can be resumed and a
// finished one reused.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/siterates/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all the checkpoints.
var MAIN = []byte("main")

// Data stores checkpoint data.
type Data struct {
	Parameters map[string]float64 `json:"parameters"`
	Likelihood float64            `json:"likelihood"`
	Iter       int                `json:"iter"`
	Final      bool               `json:"final"`
}

var _ optimize.Checkpointer = (*Store)(nil)

// Store saves and loads checkpoints for a single key.
type Store struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// Open opens (or creates) a bolt database.
func Open(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0666, &bolt.Options{Timeout: 10 * time.Second})
}

// NewStore creates a checkpoint store. Old reports whether the
// given number of seconds has passed since the last save. A nil
// database disables checkpointing.
func NewStore(db *bolt.DB, key string, seconds float64) *Store {
	return &Store{
		db:      db,
		key:     []byte(key),
		seconds: seconds,
	}
}

// Write writes a checkpoint.
func (s *Store) Write(data *Data) error {
	// even if saving fails, do not retry too often
	s.SetNow()
	b, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key, b)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Save saves parameter values. It implements
// optimize.Checkpointer.
func (s *Store) Save(parameters map[string]float64, lnL float64, iter int, final bool) error {
	log.Debugf("Saving checkpoint %s (iter=%v, final=%v)", s.key, iter, final)
	return s.Write(&Data{
		Parameters: parameters,
		Likelihood: lnL,
		Iter:       iter,
		Final:      final,
	})
}

// Load returns the checkpoint, or nil if there is no checkpoint.
func (s *Store) Load() (*Data, error) {
	var data *Data

	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	if err = json.Unmarshal(b, &data); err != nil {
		return nil, err
	}

	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished checkpoint %s (iter=%v, lnL=%v)", s.key, data.Iter, data.Likelihood)
	} else {
		log.Noticef("Found unfinished checkpoint %s (iter=%v, lnL=%v)", s.key, data.Iter, data.Likelihood)
	}

	return data, nil
}

// Restore sets parameter values from the checkpoint. It returns the
// checkpoint or nil if there was nothing to restore.
func (s *Store) Restore(pars optimize.FloatParameters) (*Data, error) {
	data, err := s.Load()
	if err != nil || data == nil {
		return nil, err
	}
	if err := pars.SetFromMap(data.Parameters); err != nil {
		return nil, err
	}
	return data, nil
}

// Old returns true if the last checkpoint was saved too long ago.
func (s *Store) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last checkpoint time to now.
func (s *Store) SetNow() {
	s.last = time.Now()
}

// SaveData saves a value in the bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from the bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}
		// the value is only valid during the transaction
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
