package dbModel

type Asset struct {
	ID       int64  `db:"asset_id"`
	SearchID string `db:"search_id"`
	Symbol   string `db:"symbol"`
	Name     string `db:"name"`
}
