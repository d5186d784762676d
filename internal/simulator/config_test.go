package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v2"

	"github.com/pattern-lab/formation-trading/internal/costs"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestUnmarshalWithPeriod() {
	raw := `
schema_version: v1.0.0
initial_capital: 50000
watchlist:
  - AAPL
  - MSFT
cost_model: equity
window_size: 120
signal_check_interval: 5
validation_stride: 5
min_occurrences: 10
workers: 2
start_time: 2023-01-02T00:00:00Z
end_time: 2023-06-30T00:00:00Z
risk:
  max_concurrent_positions: 5
  max_position_fraction: 0.2
  max_risk_per_trade: 0.02
  max_drawdown_fraction: 0.25
  fallback_fraction: 0.02
`

	var config Config
	suite.Require().NoError(yaml.Unmarshal([]byte(raw), &config))

	suite.Equal(50000.0, config.InitialCapital)
	suite.Equal([]string{"AAPL", "MSFT"}, config.Watchlist)
	suite.Equal(costs.ModelEquity, config.CostModel)
	suite.Equal(2, config.Workers)
	suite.Require().True(config.StartTime.IsSome())
	suite.Equal(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap().UTC())
	suite.Require().True(config.EndTime.IsSome())

	suite.Require().NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalWithoutPeriod() {
	raw := `
initial_capital: 100000
watchlist: [AAPL]
cost_model: zero
window_size: 60
signal_check_interval: 1
validation_stride: 1
min_occurrences: 10
workers: 1
risk:
  max_concurrent_positions: 3
  max_position_fraction: 0.2
  max_risk_per_trade: 0.02
  max_drawdown_fraction: 0.25
  fallback_fraction: 0.02
`

	var config Config
	suite.Require().NoError(yaml.Unmarshal([]byte(raw), &config))

	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.Require().NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsSchemaMismatch() {
	config := DefaultConfig([]string{"AAPL"})
	config.SchemaVersion = "v2.0.0"

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSchemaVersion))
}

func (suite *ConfigTestSuite) TestValidateRejectsEmptyWatchlist() {
	config := DefaultConfig(nil)

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulatorConfig))
}

func (suite *ConfigTestSuite) TestValidateRejectsInvertedPeriod() {
	config := DefaultConfig([]string{"AAPL"})
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	config = TestConfig([]string{"AAPL"}, start, start.AddDate(0, 0, -30))

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulatorConfig))
}

func (suite *ConfigTestSuite) TestValidateRejectsTinyWindow() {
	config := DefaultConfig([]string{"AAPL"})
	config.WindowSize = 10

	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	config := DefaultConfig([]string{"AAPL"})
	suite.Require().NoError(config.Validate())
	suite.Equal(costs.ModelEquity, config.CostModel)
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schemaJSON, "initial_capital")
	suite.Contains(schemaJSON, "watchlist")
	suite.Contains(schemaJSON, "cost_model")
}
