package report

import (
	"bytes"
	"fmt"

	"github.com/kev129/deleton/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	readingsSheet = "Readings"
)

// ReadingsHeader 明细表表头
var ReadingsHeader = []string{
	"Time", "Ride ID", "User ID", "First Name", "Last Name", "Gender", "Age",
	"Time Elapsed", "Resistance", "Heart Rate", "RPM", "Power",
}

// BuildWorkbook 生成日报 Excel：汇总表 + 明细表
func BuildWorkbook(summary Summary, facts []models.RideFact) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(readingsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, summary, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeReadings(f, facts, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, s Summary, headerStyle int) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"From", s.From.Format("2006-01-02 15:04:05")},
		{"To", s.To.Format("2006-01-02 15:04:05")},
		{"Rides", s.Rides},
		{"Riders", s.Riders},
		{"Readings", s.Readings},
		{"Average Power (W)", s.AvgPower},
		{"Average Heart Rate (bpm)", s.AvgHeartRate},
	}
	for _, g := range sortedKeys(s.RidesByGender) {
		rows = append(rows, []interface{}{"Rides (" + g + ")", s.RidesByGender[g]})
	}
	for _, b := range s.RidesByAge {
		rows = append(rows, []interface{}{"Rides (age " + b.Bracket + ")", b.Value})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		r := row
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "A", 28)
}

func writeReadings(f *excelize.File, facts []models.RideFact, headerStyle int) error {
	header := make([]interface{}, len(ReadingsHeader))
	for i, h := range ReadingsHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(readingsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(ReadingsHeader), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(readingsSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, fact := range facts {
		row := []interface{}{
			fact.Time.Format("2006-01-02 15:04:05"),
			fact.RideID,
			fact.UserID,
			fact.FirstName,
			fact.LastName,
			fact.Gender,
			optional(fact.Age),
			fact.TimeElapsed,
			optional(fact.Resistance),
			optional(fact.HeartRate),
			optional(fact.RPM),
			optional(fact.Power),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(readingsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write reading row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	return f.SetPanes(readingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// optional NULL 写为空单元格
func optional[T int | float64](v *T) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
