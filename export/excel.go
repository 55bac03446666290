package export

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/acolella/voxpop/model"
)

const sheet = "Feedback"

// Workbook renders feedback rows into a single-sheet xlsx file: fixed
// columns first, then one column per campaign question in display order.
func Workbook(questions []model.Question, feedback []model.Feedback) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)

	header := []any{
		"Time", "Order ID", "Campaign", "NPS", "Mode",
		"Feedback", "Sentiment", "Themes",
	}
	for _, q := range questions {
		header = append(header, q.Text)
	}
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, fb := range feedback {
		content := fb.Text
		if fb.Transcript != "" {
			content = fb.Transcript
		}

		row := []any{
			fb.Time.Format("2006-01-02 15:04"),
			fb.OrderID,
			campaignCell(fb.CampaignID),
			npsCell(fb.NPSScore),
			fb.Mode,
			content,
			string(fb.Sentiment),
			strings.Join(fb.Themes, ", "),
		}
		for _, q := range questions {
			row = append(row, fb.Answers[q.ID].String())
		}

		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func campaignCell(id int) any {
	if id == 0 {
		return ""
	}
	return id
}

func npsCell(score *int) any {
	if score == nil {
		return ""
	}
	return *score
}
