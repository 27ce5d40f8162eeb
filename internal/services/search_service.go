package services

import (
	"log"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"sort"
	"strings"

	"gorm.io/gorm"
)

type SearchResult struct {
	Medication models.Medication `json:"medication"`
	Score      float64           `json:"score"`
}

type SearchService struct {
	db *gorm.DB
}

func NewSearchService() *SearchService {
	return &SearchService{
		db: database.GetDB(),
	}
}

// arabicToPersian maps Arabic code points that Persian keyboards and pasted text mix in
var arabicToPersian = strings.NewReplacer(
	"ي", "ی",
	"ى", "ی",
	"ك", "ک",
	"ة", "ه",
	"‌", " ", // zero-width non-joiner
)

// NormalizeText unifies Arabic/Persian letter variants and collapses whitespace
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(arabicToPersian.Replace(s)), " ")
}

// SearchMedications ranks the user's medications against searchTerm
func (s *SearchService) SearchMedications(userID uint, searchTerm string, limit int, offset int) ([]models.Medication, error) {
	cleanTerm := strings.ToLower(NormalizeText(searchTerm))
	if cleanTerm == "" {
		return []models.Medication{}, nil
	}

	var results []SearchResult

	// Strategy 1: prefix matching per word (highest priority)
	prefixResults, err := s.prefixSearch(userID, cleanTerm)
	if err != nil {
		log.Printf("Prefix search error: %v", err)
	} else {
		results = append(results, prefixResults...)
	}

	// Strategy 2: trigram similarity for typos, postgres only
	if s.db.Dialector.Name() == "postgres" {
		fuzzyResults, err := s.fuzzySearch(userID, cleanTerm)
		if err != nil {
			log.Printf("Fuzzy search error: %v", err)
		} else {
			results = append(results, fuzzyResults...)
		}
	}

	// Strategy 3: partial matching fallback
	partialResults, err := s.partialSearch(userID, cleanTerm)
	if err != nil {
		log.Printf("Partial search error: %v", err)
	} else {
		results = append(results, partialResults...)
	}

	combined := combineAndRankResults(results)

	start := offset
	end := offset + limit
	if start >= len(combined) {
		return []models.Medication{}, nil
	}
	if end > len(combined) {
		end = len(combined)
	}

	medications := make([]models.Medication, 0, end-start)
	for i := start; i < end; i++ {
		medications = append(medications, combined[i].Medication)
	}
	return medications, nil
}

func (s *SearchService) prefixSearch(userID uint, term string) ([]SearchResult, error) {
	terms := strings.Fields(term)

	query := s.db.Where("user_id = ?", userID)
	conds := s.db
	for i, t := range terms {
		clause := "LOWER(name) LIKE ? OR LOWER(name) LIKE ?"
		if i == 0 {
			conds = conds.Where(clause, t+"%", "% "+t+"%")
		} else {
			conds = conds.Or(clause, t+"%", "% "+t+"%")
		}
	}

	var medications []models.Medication
	if err := query.Where(conds).Limit(50).Find(&medications).Error; err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(medications))
	for _, m := range medications {
		score := 50.0
		if strings.ToLower(m.Name) == term {
			score = 100
		}
		results = append(results, SearchResult{Medication: m, Score: score})
	}
	return results, nil
}

type scoredID struct {
	ID    uint
	Score float64
}

// fuzzySearch uses pg_trgm similarity to tolerate typos
func (s *SearchService) fuzzySearch(userID uint, term string) ([]SearchResult, error) {
	var scored []scoredID
	err := s.db.Model(&models.Medication{}).
		Select("id, GREATEST(similarity(name, ?), similarity(dosage, ?)) AS score", term, term).
		Where("user_id = ? AND GREATEST(similarity(name, ?), similarity(dosage, ?)) > 0.3", userID, term, term).
		Order("score DESC").
		Limit(30).
		Scan(&scored).Error
	if err != nil {
		return nil, err
	}
	return s.loadScored(scored, 40)
}

func (s *SearchService) partialSearch(userID uint, term string) ([]SearchResult, error) {
	pattern := "%" + term + "%"

	var scored []scoredID
	err := s.db.Model(&models.Medication{}).
		Select(`id, CASE
			WHEN LOWER(name) LIKE ? THEN 3
			WHEN LOWER(dosage) LIKE ? THEN 2
			ELSE 1
		END AS score`, pattern, pattern).
		Where("user_id = ? AND (LOWER(name) LIKE ? OR LOWER(dosage) LIKE ? OR LOWER(description) LIKE ?)",
			userID, pattern, pattern, pattern).
		Order("score DESC").
		Limit(50).
		Scan(&scored).Error
	if err != nil {
		return nil, err
	}
	return s.loadScored(scored, 10)
}

// loadScored fetches the medications behind scored ids, scaling each score by weight
func (s *SearchService) loadScored(scored []scoredID, weight float64) ([]SearchResult, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(scored))
	for i, sc := range scored {
		ids[i] = sc.ID
	}

	var medications []models.Medication
	if err := s.db.Where("id IN ?", ids).Find(&medications).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Medication, len(medications))
	for _, m := range medications {
		byID[m.ID] = m
	}

	results := make([]SearchResult, 0, len(scored))
	for _, sc := range scored {
		if m, ok := byID[sc.ID]; ok {
			results = append(results, SearchResult{Medication: m, Score: sc.Score * weight})
		}
	}
	return results, nil
}

// combineAndRankResults keeps the best score per medication, newest first on ties
func combineAndRankResults(results []SearchResult) []SearchResult {
	best := make(map[uint]SearchResult)
	for _, result := range results {
		existing, exists := best[result.Medication.ID]
		if !exists || result.Score > existing.Score {
			best[result.Medication.ID] = result
		}
	}

	final := make([]SearchResult, 0, len(best))
	for _, result := range best {
		final = append(final, result)
	}

	sort.Slice(final, func(i, j int) bool {
		if final[i].Score != final[j].Score {
			return final[i].Score > final[j].Score
		}
		return final[i].Medication.ID > final[j].Medication.ID
	})
	return final
}
