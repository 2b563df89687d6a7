package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// ExportService streams every item joined with its list and owner.
type ExportService struct {
	repo repository.ExportRepository
}

// NewExportService creates a new export service.
func NewExportService(repo repository.ExportRepository) *ExportService {
	return &ExportService{repo: repo}
}

// Export writes the rowset to w in the requested format and returns the
// number of rows written.
func (s *ExportService) Export(ctx context.Context, format domain.ExportFormat, w io.Writer) (int, error) {
	var (
		n   int
		err error
	)
	switch format {
	case domain.ExportJSON:
		n, err = s.exportJSON(ctx, w)
	default:
		n, err = s.exportCSV(ctx, w)
	}
	if err != nil {
		return n, fmt.Errorf("export wishlists: %w", err)
	}
	return n, nil
}

func (s *ExportService) exportCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ExportHeader); err != nil {
		return 0, err
	}
	n := 0
	err := s.repo.Export(ctx, func(row domain.ExportRow) error {
		n++
		return cw.Write(row.Record())
	})
	cw.Flush()
	if err != nil {
		return n, err
	}
	return n, cw.Error()
}

func (s *ExportService) exportJSON(ctx context.Context, w io.Writer) (int, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return 0, err
	}
	n := 0
	err := s.repo.Export(ctx, func(row domain.ExportRow) error {
		b, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if n > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		n++
		_, err = w.Write(b)
		return err
	})
	if err != nil {
		return n, err
	}
	_, err = io.WriteString(w, "]\n")
	return n, err
}
