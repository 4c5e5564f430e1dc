package export

import (
	"fmt"
	"io"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/xuri/excelize/v2"
)

const FeedbackSheet = "Feedback"

var feedbackHeader = []interface{}{"ID", "User ID", "Feedback", "Submitted At"}

// WriteFeedbackWorkbook writes one row per feedback entry, under a header
// row, as an xlsx workbook.
func WriteFeedbackWorkbook(w io.Writer, entries []*domain.Feedback) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FeedbackSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(FeedbackSheet, "A1", &feedbackHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			entry.ID.String(),
			entry.UserID.String(),
			entry.Feedback,
			entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(FeedbackSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(FeedbackSheet, "C", "C", 80); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
