package storage

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/service/config"
)

type folderService struct {
	CfgSvc config.IService
}

func NewFolder(cfgsvc config.IService) IService {
	return &folderService{
		CfgSvc: cfgsvc,
	}
}

func (svc *folderService) StoreSnapshot(name string, jpeg []byte) (string, error) {
	folder := svc.CfgSvc.GetSnapshotsFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", xerrors.Errorf("creating snapshots folder: %w", err)
	}

	// never let a caller-supplied name escape the folder
	path := filepath.Join(folder, filepath.Base(name))
	if err := os.WriteFile(path, jpeg, 0644); err != nil {
		return "", xerrors.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}
