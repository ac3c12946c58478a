package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

var ErrEmptyDocument = errors.New("empty document")

// Inspector reads structural information from uploaded PDF documents
type Inspector interface {
	PageCount(data []byte) (int, error)
}

type inspector struct {
	conf   *model.Configuration
	logger *zap.Logger
}

func NewInspector(logger *zap.Logger) Inspector {
	// Keep pdfcpu from writing its config dir under the user's home
	api.DisableConfigDir()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &inspector{
		conf:   conf,
		logger: logger,
	}
}

func (i *inspector) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyDocument
	}

	count, err := api.PageCount(bytes.NewReader(data), i.conf)
	if err != nil {
		i.logger.Warn("Failed to read PDF", zap.Int("size", len(data)), zap.Error(err))
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}

	return count, nil
}
