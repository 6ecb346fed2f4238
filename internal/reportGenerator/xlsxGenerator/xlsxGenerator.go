package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Balance"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the valued balance into a single-sheet xlsx workbook.
func (g *XLSXGenerator) Generate(ctx context.Context, balance model.UserBalance, currency string) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(balance.Assets) == 0 {
		return nil, "", errors.New("empty balance")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		slog.Error("got error while renaming sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillSheet(f, balance, currency); err != nil {
		slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, balance model.UserBalance, currency string) error {
	if err := f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Holdings (%s)", currency))

	headerStyleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", headerStyleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "name")
	_ = f.SetCellStr(sheetName, "B2", "symbol")
	_ = f.SetCellStr(sheetName, "C2", "amount")
	_ = f.SetCellStr(sheetName, "D2", "value")
	_ = f.SetCellStr(sheetName, "E2", "share %")

	total := decimal.Zero
	for _, holding := range balance.Assets {
		total = total.Add(holding.ValueInCurrency)
	}

	row := 3
	hundred := decimal.NewFromInt(100)
	for _, holding := range balance.Assets {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), holding.Asset.Name)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), holding.Asset.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), holding.Amount.String())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), holding.ValueInCurrency.String())

		if !total.IsZero() {
			share := holding.ValueInCurrency.Div(total).Mul(hundred).Round(2)
			_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), share.String())
		}

		row++
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "total")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), total.Round(2).String())

	return nil
}
