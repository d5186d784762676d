package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FormationTestSuite struct {
	suite.Suite
}

func TestFormationSuite(t *testing.T) {
	suite.Run(t, new(FormationTestSuite))
}

func validFormation() Formation {
	return Formation{
		Kind:        FormationCupWithHandle,
		Instrument:  "AAPL",
		WindowStart: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		Levels: map[string]float64{
			LevelLeftPeak: 110,
			LevelTrough:   90,
		},
		EntryPrice:         100,
		ConservativeTarget: 110,
		AggressiveTarget:   130,
	}
}

func (suite *FormationTestSuite) TestValidate() {
	f := validFormation()
	suite.NoError(f.Validate())
}

func (suite *FormationTestSuite) TestValidateRejectsMissingFields() {
	tests := []struct {
		name   string
		mutate func(*Formation)
	}{
		{"missing kind", func(f *Formation) { f.Kind = "" }},
		{"missing instrument", func(f *Formation) { f.Instrument = "" }},
		{"zero entry", func(f *Formation) { f.EntryPrice = 0 }},
		{"negative conservative target", func(f *Formation) { f.ConservativeTarget = -1 }},
		{"inverted targets", func(f *Formation) { f.AggressiveTarget = f.ConservativeTarget - 5 }},
		{"nil levels", func(f *Formation) { f.Levels = nil }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			f := validFormation()
			tc.mutate(&f)
			suite.Error(f.Validate())
		})
	}
}

func (suite *FormationTestSuite) TestLevel() {
	f := validFormation()

	trough, ok := f.Level(LevelTrough)
	suite.True(ok)
	suite.Equal(90.0, trough)

	_, ok = f.Level(LevelNeckline)
	suite.False(ok)
}

func (suite *FormationTestSuite) TestApprovedTargetPrice() {
	f := validFormation()

	tests := []struct {
		name     string
		result   ValidationResult
		expected float64
		isSome   bool
	}{
		{
			name:     "aggressive tier",
			result:   ValidationResult{Approved: true, ApprovedTarget: TargetAggressive},
			expected: 130,
			isSome:   true,
		},
		{
			name:     "conservative tier",
			result:   ValidationResult{Approved: true, ApprovedTarget: TargetConservative},
			expected: 110,
			isSome:   true,
		},
		{
			name:   "rejected",
			result: ValidationResult{Approved: false, ApprovedTarget: TargetNone},
			isSome: false,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			price := tc.result.ApprovedTargetPrice(f)
			suite.Equal(tc.isSome, price.IsSome())

			if tc.isSome {
				suite.Equal(tc.expected, price.Unwrap())
			}
		})
	}
}
