package mocks

//go:generate mockgen -destination=./mock_decision_source.go -package=mocks github.com/pattern-lab/formation-trading/internal/decision Source
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/pattern-lab/formation-trading/internal/history Provider
//go:generate mockgen -destination=./mock_cache.go -package=mocks github.com/pattern-lab/formation-trading/internal/pattern/cache Cache
