package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

type RegistryTestSuite struct {
	suite.Suite
	registry Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	detector := NewCupWithHandleDetector(60)
	suite.NoError(suite.registry.Register(detector))

	got, err := suite.registry.Get(types.FormationCupWithHandle)
	suite.NoError(err)
	suite.Equal(types.FormationCupWithHandle, got.Kind())
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	suite.NoError(suite.registry.Register(NewCupWithHandleDetector(60)))

	err := suite.registry.Register(NewCupWithHandleDetector(90))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDetectorExists))
}

func (suite *RegistryTestSuite) TestGetUnknown() {
	_, err := suite.registry.Get(types.FormationKind("head_and_shoulders"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownFormation))
}

func (suite *RegistryTestSuite) TestRemove() {
	suite.NoError(suite.registry.Register(NewGoldenCrossDetector()))
	suite.NoError(suite.registry.Remove(types.FormationGoldenCross))

	_, err := suite.registry.Get(types.FormationGoldenCross)
	suite.Error(err)

	suite.Error(suite.registry.Remove(types.FormationGoldenCross))
}

func (suite *RegistryTestSuite) TestDefaultRegistry() {
	registry := NewDefaultRegistry(60)

	kinds := registry.List()
	suite.Len(kinds, 3)
	suite.Contains(kinds, types.FormationCupWithHandle)
	suite.Contains(kinds, types.FormationRoundedBottom)
	suite.Contains(kinds, types.FormationGoldenCross)
}

// synthBars builds a bar series from closing values, with highs half a
// point above and lows half a point below each close.
func synthBars(instrument string, closes []float64) []types.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Instrument: instrument,
			Date:       start.AddDate(0, 0, i),
			Open:       c,
			High:       c + 0.5,
			Low:        c - 0.5,
			Close:      c,
			Volume:     1000,
		}
	}

	return bars
}
