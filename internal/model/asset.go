package model

type Asset struct {
	ID       int64
	SearchID string
	Symbol   string
	Name     string
}
