package services

import (
	"testing"

	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"

	"github.com/stretchr/testify/suite"
)

type FormatDetectorTestSuite struct {
	suite.Suite
	detector FormatDetectorInterface
}

func TestFormatDetectorSuite(t *testing.T) {
	suite.Run(t, new(FormatDetectorTestSuite))
}

func (s *FormatDetectorTestSuite) SetupTest() {
	s.detector = NewFormatDetector()
}

func (s *FormatDetectorTestSuite) TestDetect_KnownLayouts() {
	testCases := []struct {
		name    string
		columns []string
		schema  models.SchemaID
		trust   bool
	}{
		{
			name:    "Discover",
			columns: []string{"Trans. Date", "Post Date", "Description", "Amount", "Category"},
			schema:  models.SchemaDiscover,
			trust:   true,
		},
		{
			name:    "Chase credit",
			columns: []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount", "Memo"},
			schema:  models.SchemaChaseCredit,
			trust:   true,
		},
		{
			name:    "Chase checking",
			columns: []string{"Details", "Posting Date", "Description", "Amount", "Type", "Balance", "Check or Slip #"},
			schema:  models.SchemaChaseDebit,
			trust:   false,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := s.detector.Detect(tc.columns)
			s.Equal(tc.schema, result.Schema)
			s.InDelta(1.0, result.Confidence, 1e-9)
			s.Equal(tc.trust, result.TrustNativeCategories)
			s.True(result.IsKnown())
			s.Len(result.Scores, 3)
		})
	}
}

func (s *FormatDetectorTestSuite) TestDetect_PartialMatchScoring() {
	// Chase credit scores 0.4*0.375 + 0.4*0.5 + 0.2*4/7 against the Discover header
	result := s.detector.Detect([]string{"Trans. Date", "Post Date", "Description", "Amount", "Category"})
	s.InDelta(0.15+0.2+0.2*4.0/7.0, result.Scores[models.SchemaChaseCredit], 1e-9)
}

func (s *FormatDetectorTestSuite) TestDetect_NoSharedColumns() {
	result := s.detector.Detect([]string{"foo", "bar", "baz"})

	s.Equal(models.SchemaUnknown, result.Schema)
	s.Equal(0.0, result.Confidence)
	s.False(result.TrustNativeCategories)
	s.False(result.IsKnown())
}

func (s *FormatDetectorTestSuite) TestDetect_BelowThresholdReportsBestScore() {
	// Discover: all required, no characteristic, 2 of 5 overall
	result := s.detector.Detect([]string{"Description", "Amount"})

	s.Equal(models.SchemaUnknown, result.Schema)
	s.InDelta(0.48, result.Confidence, 1e-9)
	s.False(result.TrustNativeCategories)
}

func (s *FormatDetectorTestSuite) TestDetect_EmptyHeader() {
	result := s.detector.Detect(nil)
	s.Equal(models.SchemaUnknown, result.Schema)
	s.Equal(0.0, result.Confidence)
}

func (s *FormatDetectorTestSuite) TestDetect_HeaderNoise() {
	result := s.detector.Detect([]string{"\ufeffTrans. Date", " Post Date ", "Description", "Amount ", "Category"})
	s.Equal(models.SchemaDiscover, result.Schema)
	s.InDelta(1.0, result.Confidence, 1e-9)
}

func (s *FormatDetectorTestSuite) TestDetect_ColumnOrderDoesNotMatter() {
	result := s.detector.Detect([]string{"Category", "Amount", "Description", "Post Date", "Trans. Date"})
	s.Equal(models.SchemaDiscover, result.Schema)
}

func (s *FormatDetectorTestSuite) TestDetect_TiesGoToEarlierSignature() {
	clone := knownSignatures[2]
	clone.Schema = "discover_clone"
	clone.NativeCategories = false

	detector := NewFormatDetector(WithSignatures(clone))
	result := detector.Detect([]string{"Trans. Date", "Post Date", "Description", "Amount", "Category"})

	s.Equal(models.SchemaDiscover, result.Schema)
	s.True(result.TrustNativeCategories)
	s.Equal(result.Scores[models.SchemaDiscover], result.Scores["discover_clone"])
}

func (s *FormatDetectorTestSuite) TestDetect_CustomThreshold() {
	detector := NewFormatDetector(WithMinConfidence(0.4))
	result := detector.Detect([]string{"Description", "Amount"})

	s.Equal(models.SchemaDiscover, result.Schema)
	s.InDelta(0.48, result.Confidence, 1e-9)
}

func (s *FormatDetectorTestSuite) TestDetectTable() {
	table, err := reader.FromRecords([][]string{
		{"Posting Date", "Description", "Amount", "Details", "Balance"},
		{"01/15/2024", "STARBUCKS", "-4.50", "DEBIT", "100.00"},
	})
	s.Require().NoError(err)

	result := s.detector.DetectTable(table)
	s.Equal(models.SchemaChaseDebit, result.Schema)

	s.Equal(models.SchemaUnknown, s.detector.DetectTable(nil).Schema)
}

func (s *FormatDetectorTestSuite) TestFormatInfo() {
	info := s.detector.FormatInfo(models.SchemaDiscover)
	s.Equal("Discover Credit Card", info.Name)
	s.Equal(models.BankDiscover, info.Bank)
	s.Equal(models.CardTypeCredit, info.CardType)

	s.Equal(unknownFormat, s.detector.FormatInfo(models.SchemaUnknown))
}

func (s *FormatDetectorTestSuite) TestSignatures_ReturnsCopy() {
	sigs := s.detector.Signatures()
	s.Require().Len(sigs, 3)
	s.Equal(models.SchemaChaseCredit, sigs[0].Schema)

	sigs[0].Schema = "mutated"
	s.Equal(models.SchemaChaseCredit, s.detector.Signatures()[0].Schema)
}

// Adding a column that only one signature knows about never lowers that
// signature's score and never raises any other. Shared columns such as
// Category are left out: Category is characteristic for Chase credit but also
// counts toward Discover's overall coverage, so it can raise both.
func (s *FormatDetectorTestSuite) TestDetect_AddingExclusiveColumnIsMonotonic() {
	signatures := s.detector.Signatures()

	for _, sig := range signatures {
		for _, col := range sig.Characteristic {
			if !exclusiveTo(sig.Schema, col, signatures) {
				continue
			}
			s.Run(string(sig.Schema)+"/"+col, func() {
				base := append([]string(nil), sig.Required...)
				before := s.detector.Detect(base).Scores
				after := s.detector.Detect(append(base, col)).Scores

				s.Greater(after[sig.Schema], before[sig.Schema])
				for _, other := range signatures {
					if other.Schema == sig.Schema {
						continue
					}
					s.LessOrEqual(after[other.Schema], before[other.Schema], "%s rose", other.Schema)
				}
			})
		}
	}
}

func (s *FormatDetectorTestSuite) TestDetect_ExclusiveCharacteristicColumnsCovered() {
	var covered []string
	signatures := s.detector.Signatures()
	for _, sig := range signatures {
		for _, col := range sig.Characteristic {
			if exclusiveTo(sig.Schema, col, signatures) {
				covered = append(covered, col)
			}
		}
	}
	s.ElementsMatch([]string{"Memo", "Details", "Balance", "Trans. Date"}, covered)
}

func exclusiveTo(schema models.SchemaID, column string, signatures []models.FormatSignature) bool {
	for _, other := range signatures {
		if other.Schema == schema {
			continue
		}
		for _, list := range [][]string{other.Required, other.Characteristic, other.All} {
			for _, c := range list {
				if c == column {
					return false
				}
			}
		}
	}
	return true
}
