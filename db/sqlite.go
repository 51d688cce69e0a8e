package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"orthorec/ml"
	"orthorec/prosthesis"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS recommendations (
        id INTEGER PRIMARY KEY,
        created_at DATETIME,
        profile TEXT,
        material_id VARCHAR(40),
        material_confidence INTEGER,
        fixation_id VARCHAR(40),
        fixation_confidence INTEGER,
        source VARCHAR(10)
    );
    CREATE INDEX IF NOT EXISTS idx_recommendations_created
        ON recommendations(created_at);
    `
	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// RecommendationRecord is one served recommendation, kept for the
// history endpoint and offline review.
type RecommendationRecord struct {
	ID                 int64                     `json:"id"`
	CreatedAt          time.Time                 `json:"createdAt"`
	Profile            prosthesis.PatientProfile `json:"profile"`
	MaterialID         string                    `json:"materialId"`
	MaterialConfidence int                       `json:"materialConfidence"`
	FixationID         string                    `json:"fixationId"`
	FixationConfidence int                       `json:"fixationConfidence"`
	Source             string                    `json:"source"`
}

// SaveRecommendation appends a served result to the history.
func SaveRecommendation(profile prosthesis.PatientProfile, result *ml.Recommendation) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = database.Exec(`
        INSERT INTO recommendations
            (created_at, profile, material_id, material_confidence, fixation_id, fixation_confidence, source)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(),
		string(profileJSON),
		result.RecommendedMaterial.ID,
		result.RecommendedMaterial.Confidence,
		result.RecommendedFixation.ID,
		result.RecommendedFixation.Confidence,
		result.Source,
	)
	return err
}

// QueryRecent returns the newest records, most recent first.
func QueryRecent(limit int) ([]RecommendationRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, created_at, profile, material_id, material_confidence,
               fixation_id, fixation_confidence, source
        FROM recommendations
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RecommendationRecord, 0, limit)
	for rows.Next() {
		var rec RecommendationRecord
		var profileJSON string
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &profileJSON,
			&rec.MaterialID, &rec.MaterialConfidence,
			&rec.FixationID, &rec.FixationConfidence, &rec.Source); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(profileJSON), &rec.Profile); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
