package storage

// IService persists encoded snapshots and returns where they landed.
type IService interface {
	StoreSnapshot(name string, jpeg []byte) (string, error)
}
