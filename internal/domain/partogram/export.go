package partogram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Время", "ЧСС плода", "Децелерации", "Околоплодные воды", "Предлежание",
	"Родовая опухоль", "Конфигурация головки", "Пульс матери", "АД",
	"Температура", "Мочеиспускание", "Схватки (за 10 мин)", "Длительность схваток (сек)",
	"Потуги", "Раскрытие (см)", "Продвижение головки", "Окситоцин",
	"Медикаменты", "Инфузии",
}

// ExportXLSX renders a patient's full partogram as an XLSX workbook and
// returns the file bytes plus a suggested filename.
func (s *Service) ExportXLSX(ctx context.Context, patientID uuid.UUID) ([]byte, string, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.entries.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Партограмма"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	f.SetCellValue(sheet, "A1", p.FullName)
	f.SetCellValue(sheet, "A2", "Статус: "+p.Status.Label())
	if p.LaborStart != nil {
		f.SetCellValue(sheet, "A3", "Начало родов: "+p.LaborStart.Format("02.01.2006 15:04"))
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	const headerRow = 5
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, "", err
		}
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	// Entries come newest-first from the store; the chart reads oldest-first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		row := headerRow + (len(entries) - i)
		values := []interface{}{
			e.Time.Format("02.01.2006 15:04"),
			intOrBlank(e.FetalHeartRate), strOrBlank(e.Decelerations), strOrBlank(e.AmnioticFluid),
			strOrBlank(e.Presentation), strOrBlank(e.Caput), strOrBlank(e.Molding),
			intOrBlank(e.MaternalPulse), strOrBlank(e.BloodPressure), floatOrBlank(e.Temperature),
			strOrBlank(e.Urination), intOrBlank(e.ContractionFrequency), intOrBlank(e.ContractionDuration),
			strOrBlank(e.Pushing), intOrBlank(e.CervicalDilation), strOrBlank(e.HeadDescent),
			strOrBlank(e.Oxytocin), strOrBlank(e.Medications), strOrBlank(e.IVFluids),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, "", err
			}
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	name := "partogram_" + strings.ReplaceAll(p.FullName, " ", "_") + ".xlsx"
	return buf.Bytes(), name, nil
}

func intOrBlank(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrBlank(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func strOrBlank(v *string) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
