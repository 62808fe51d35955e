package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store Store
