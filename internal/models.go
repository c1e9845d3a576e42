package internal

// Confidence is the coarse confidence bucket attached to a prediction
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known buckets
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Horse is a single scored entry in a prediction
type Horse struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name"`
	BaseScore  float64    `json:"base_score" yaml:"base_score"`
	FinalScore float64    `json:"final_score" yaml:"final_score"`
	Rank       int        `json:"rank" yaml:"rank"`
	Confidence Confidence `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// DataSource describes where the backend took its race data from
type DataSource struct {
	Source      string `json:"source" yaml:"source"`
	Description string `json:"description" yaml:"description"`
	LastUpdate  string `json:"last_update,omitempty" yaml:"last_update,omitempty"`
}

// PredictionResult is the response of a prediction request.
// It is replaced as a whole and never mutated after normalization.
type PredictionResult struct {
	Horses             []Horse     `json:"horses" yaml:"horses"`
	Confidence         Confidence  `json:"confidence" yaml:"confidence"`
	SelectedConditions []string    `json:"selectedConditions" yaml:"selected_conditions"`
	CalculationTime    string      `json:"calculationTime" yaml:"calculation_time"`
	Analysis           string      `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	DataSource         *DataSource `json:"dataSource,omitempty" yaml:"data_source,omitempty"`
}

// ChatResponseType is the kind of reply returned by the legacy chat endpoint
type ChatResponseType string

const (
	ChatResponseText       ChatResponseType = "text"
	ChatResponseConditions ChatResponseType = "conditions"
	ChatResponsePrediction ChatResponseType = "prediction"
)

// LegacyChatReply is returned by POST /chat
type LegacyChatReply struct {
	Message string                 `json:"message"`
	Type    ChatResponseType       `json:"type"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// HistoryEntry is one prior turn sent along with a chat message
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DLogicHorse is a scored horse inside a chat reply
type DLogicHorse struct {
	HorseName   string  `json:"horse_name" yaml:"horse_name"`
	TotalScore  float64 `json:"total_score" yaml:"total_score"`
	DLogicScore float64 `json:"d_logic_score,omitempty" yaml:"d_logic_score,omitempty"`
}

// DLogicResult is the score table attached to a chat reply
type DLogicResult struct {
	Horses    []DLogicHorse `json:"horses" yaml:"horses"`
	BaseHorse string        `json:"base_horse,omitempty" yaml:"base_horse,omitempty"`
	BaseScore float64       `json:"base_score,omitempty" yaml:"base_score,omitempty"`
}

// ChatReply is returned by POST /api/chat/message
type ChatReply struct {
	Status        string                   `json:"status"`
	Message       string                   `json:"message"`
	HasDLogic     bool                     `json:"has_d_logic"`
	RaceInfo      map[string]interface{}   `json:"race_info,omitempty"`
	DLogicResult  *DLogicResult            `json:"d_logic_result,omitempty"`
	MatchingRaces []map[string]interface{} `json:"matching_races,omitempty"`
}

// Race is one race on today's card
type Race struct {
	RaceID     string `json:"raceId" yaml:"race_id"`
	RaceNumber int    `json:"raceNumber" yaml:"race_number"`
	RaceName   string `json:"raceName" yaml:"race_name"`
	Time       string `json:"time" yaml:"time"`
	Distance   string `json:"distance" yaml:"distance"`
	Track      string `json:"track" yaml:"track"`
	EntryCount int    `json:"entryCount" yaml:"entry_count"`
	PrizePool  string `json:"prizePool,omitempty" yaml:"prize_pool,omitempty"`
}

// Racecourse groups today's races by venue
type Racecourse struct {
	Name           string `json:"name" yaml:"name"`
	CourseID       string `json:"courseId" yaml:"course_id"`
	Weather        string `json:"weather" yaml:"weather"`
	TrackCondition string `json:"trackCondition" yaml:"track_condition"`
	RaceCount      int    `json:"raceCount" yaml:"race_count"`
	Races          []Race `json:"races" yaml:"races"`
}

// TodayRaces is returned by GET /api/today-races
type TodayRaces struct {
	Date        string       `json:"date" yaml:"date"`
	LastUpdate  string       `json:"lastUpdate" yaml:"last_update"`
	Racecourses []Racecourse `json:"racecourses" yaml:"racecourses"`
	// Source is set locally: network, cache or fallback
	Source string `json:"-" yaml:"-"`
}

// PastRace summarizes a finished race
type PastRace struct {
	RaceID         string `json:"raceId" yaml:"race_id"`
	RaceName       string `json:"raceName" yaml:"race_name"`
	Date           string `json:"date" yaml:"date"`
	Racecourse     string `json:"racecourse" yaml:"racecourse"`
	RaceNumber     int    `json:"raceNumber" yaml:"race_number"`
	Distance       string `json:"distance" yaml:"distance"`
	Track          string `json:"track" yaml:"track"`
	Grade          string `json:"grade,omitempty" yaml:"grade,omitempty"`
	Weather        string `json:"weather" yaml:"weather"`
	TrackCondition string `json:"trackCondition" yaml:"track_condition"`
	Winner         string `json:"winner" yaml:"winner"`
	Time           string `json:"time" yaml:"time"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	EntryCount     int    `json:"entryCount" yaml:"entry_count"`
}

// PastRaceList is returned by GET /api/past-races
type PastRaceList struct {
	Races      []PastRace `json:"races"`
	Total      int        `json:"total"`
	LastUpdate string     `json:"lastUpdate"`
}

// PastRaceHorse is a runner in a finished race with its D-Logic evaluation
type PastRaceHorse struct {
	Number         int     `json:"number" yaml:"number"`
	Name           string  `json:"name" yaml:"name"`
	Jockey         string  `json:"jockey" yaml:"jockey"`
	Trainer        string  `json:"trainer" yaml:"trainer"`
	Weight         float64 `json:"weight" yaml:"weight"`
	HorseWeight    int     `json:"horseWeight" yaml:"horse_weight"`
	WeightChange   int     `json:"weightChange" yaml:"weight_change"`
	Age            int     `json:"age" yaml:"age"`
	Sex            string  `json:"sex" yaml:"sex"`
	Odds           float64 `json:"odds" yaml:"odds"`
	Popularity     int     `json:"popularity" yaml:"popularity"`
	Result         int     `json:"result" yaml:"result"`
	DLogicScore    float64 `json:"dLogicScore" yaml:"d_logic_score"`
	DLogicRank     int     `json:"dLogicRank" yaml:"d_logic_rank"`
	WinProbability float64 `json:"winProbability" yaml:"win_probability"`
}

// PastRaceDetail is returned by GET /api/past-races/{id}
type PastRaceDetail struct {
	RaceInfo   PastRace        `json:"raceInfo"`
	Horses     []PastRaceHorse `json:"horses"`
	LastUpdate string          `json:"lastUpdate"`
}

// RaceAnalysis compares the D-Logic ranking with the actual finish
type RaceAnalysis struct {
	Accuracy      float64 `json:"accuracy" yaml:"accuracy"`
	FirstPlaceHit bool    `json:"firstPlaceHit" yaml:"first_place_hit"`
	Top3Accuracy  float64 `json:"top3Accuracy" yaml:"top3_accuracy"`
	TotalHorses   int     `json:"totalHorses" yaml:"total_horses"`
	DLogicWinner  string  `json:"dLogicWinner" yaml:"d_logic_winner"`
	ActualWinner  string  `json:"actualWinner" yaml:"actual_winner"`
}

// PastRaceAnalysis is returned by POST /api/past-races/{id}/analyze
type PastRaceAnalysis struct {
	RaceInfo PastRace        `json:"raceInfo"`
	Horses   []PastRaceHorse `json:"horses"`
	Analysis RaceAnalysis    `json:"analysis"`
}

// DatabaseStats is the numeric part of the database statistics
type DatabaseStats struct {
	TotalRecords     int64  `json:"total_records" yaml:"total_records"`
	TotalHorses      int64  `json:"total_horses" yaml:"total_horses"`
	TotalRaces       int64  `json:"total_races" yaml:"total_races"`
	YearsSpan        int    `json:"years_span" yaml:"years_span"`
	Period           string `json:"period" yaml:"period"`
	LatestRaceDate   string `json:"latest_race_date,omitempty" yaml:"latest_race_date,omitempty"`
	CurrentYearRaces int64  `json:"current_year_races,omitempty" yaml:"current_year_races,omitempty"`
	G1Races          int64  `json:"g1_races,omitempty" yaml:"g1_races,omitempty"`
}

// DisplayText holds backend-formatted labels for the statistics
type DisplayText struct {
	Records string `json:"records" yaml:"records"`
	Horses  string `json:"horses" yaml:"horses"`
	Races   string `json:"races" yaml:"races"`
	Years   string `json:"years" yaml:"years"`
	Summary string `json:"summary" yaml:"summary"`
}

// DatabaseStatsResponse is returned by GET /api/stats/database
type DatabaseStatsResponse struct {
	Status        string        `json:"status" yaml:"status"`
	DatabaseStats DatabaseStats `json:"database_stats" yaml:"database_stats"`
	DisplayText   DisplayText   `json:"display_text" yaml:"display_text"`
	LastUpdated   string        `json:"last_updated" yaml:"last_updated"`
	Source        string        `json:"-" yaml:"-"`
}

// HealthStatus is the outcome of a health check
type HealthStatus struct {
	Healthy    bool
	StatusCode int
	Message    string
	Latency    int64 // milliseconds
}
