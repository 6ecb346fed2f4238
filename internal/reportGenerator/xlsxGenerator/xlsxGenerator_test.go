package xlsxGenerator

import (
	"bytes"
	"context"
	"testing"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("renders holdings with a total row", func(t *testing.T) {
		balance := model.UserBalance{
			UserID: 1,
			Assets: []model.ValuedHolding{
				{
					Asset:           model.Asset{SearchID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
					Amount:          decimal.RequireFromString("1.5"),
					ValueInCurrency: decimal.RequireFromString("300"),
				},
				{
					Asset:           model.Asset{SearchID: "ethereum", Symbol: "eth", Name: "Ethereum"},
					Amount:          decimal.RequireFromString("2"),
					ValueInCurrency: decimal.RequireFromString("100"),
				},
			},
		}

		fileBytes, ext, err := New().Generate(ctx, balance, "usd")
		require.NoError(t, err)
		assert.Equal(t, ".xlsx", ext)
		require.NotEmpty(t, fileBytes)

		f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
		require.NoError(t, err)
		defer f.Close()

		title, err := f.GetCellValue(sheetName, "A1")
		require.NoError(t, err)
		assert.Equal(t, "Holdings (usd)", title)

		name, err := f.GetCellValue(sheetName, "A3")
		require.NoError(t, err)
		assert.Equal(t, "Bitcoin", name)

		value, err := f.GetCellValue(sheetName, "D3")
		require.NoError(t, err)
		assert.Equal(t, "300", value)

		share, err := f.GetCellValue(sheetName, "E3")
		require.NoError(t, err)
		assert.Equal(t, "75", share)

		total, err := f.GetCellValue(sheetName, "D5")
		require.NoError(t, err)
		assert.Equal(t, "400", total)
	})

	t.Run("fails on an empty balance", func(t *testing.T) {
		_, _, err := New().Generate(ctx, model.UserBalance{UserID: 1}, "usd")
		assert.Error(t, err)
	})
}
