package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	job      interfaces.JobStorage
	artifact interfaces.ArtifactStorage
	suspect  interfaces.SuspectStorage
	chunk    interfaces.ChunkStorage
	graph    interfaces.GraphStorage
	user     interfaces.UserStorage
	activity interfaces.ActivityStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return NewManagerWithDB(logger, db), nil
}

// NewManagerWithDB builds a manager over an already-open connection.
// Used by tests that share one database across storages.
func NewManagerWithDB(logger arbor.ILogger, db *BadgerDB) interfaces.StorageManager {
	return &Manager{
		db:       db,
		job:      NewJobStorage(db, logger),
		artifact: NewArtifactStorage(db, logger),
		suspect:  NewSuspectStorage(db, logger),
		chunk:    NewChunkStorage(db, logger),
		graph:    NewGraphStorage(db, logger),
		user:     NewUserStorage(db, logger),
		activity: NewActivityStorage(db, logger),
		logger:   logger,
	}
}

func (m *Manager) JobStorage() interfaces.JobStorage           { return m.job }
func (m *Manager) ArtifactStorage() interfaces.ArtifactStorage { return m.artifact }
func (m *Manager) SuspectStorage() interfaces.SuspectStorage   { return m.suspect }
func (m *Manager) ChunkStorage() interfaces.ChunkStorage       { return m.chunk }
func (m *Manager) GraphStorage() interfaces.GraphStorage       { return m.graph }
func (m *Manager) UserStorage() interfaces.UserStorage         { return m.user }
func (m *Manager) ActivityStorage() interfaces.ActivityStorage { return m.activity }

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
