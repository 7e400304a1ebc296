package mocks

//go:generate mockgen -destination=./mock_scorer.go -package=mocks github.com/rxtech-lab/argo-signal/pkg/rule Scorer
//go:generate mockgen -destination=./mock_candle_source.go -package=mocks github.com/rxtech-lab/argo-signal/internal/datasource CandleSource
