package testutil

// Backend response bodies as the D-Logic server sends them

const PredictionJSON = `{
  "horses": [
    {"id": "h1", "name": "イクイノックス", "base_score": 118.5, "final_score": 121.0, "rank": 1, "confidence": "high"},
    {"id": "h2", "name": "リバティアイランド", "base_score": 120.0, "final_score": 125.5, "rank": 2, "confidence": "medium"},
    {"id": "h3", "name": "ドウデュース", "base_score": 99.0, "final_score": 98.0, "rank": 3, "confidence": "low"}
  ],
  "confidence": "high",
  "selectedConditions": ["1_running_style", "3_distance_category", "5_course_specific", "7_track_condition"],
  "calculationTime": "2024-12-01T10:00:00Z",
  "analysis": "距離適性を重視した結果です。"
}`

// SparsePredictionJSON omits every optional field
const SparsePredictionJSON = `{
  "horses": [
    {"name": "サンプルA", "base_score": 101.0},
    {"name": "", "base_score": 99.5, "final_score": 100.0, "confidence": "certain"}
  ],
  "confidence": "unknown"
}`

const ChatReplyJSON = `{
  "status": "success",
  "message": "東京1Rの分析結果です。",
  "has_d_logic": true,
  "race_info": {"venue": "東京", "race_number": 1},
  "d_logic_result": {
    "horses": [
      {"horse_name": "サンプルホース", "total_score": 112.3},
      {"horse_name": "テストホース", "total_score": 104.8}
    ]
  }
}`

const ChatReplyTextJSON = `{"status": "success", "message": "こんにちは！", "has_d_logic": false}`

const TodayRacesJSON = `{
  "date": "2024-12-01",
  "lastUpdate": "2024-12-01T08:00:00Z",
  "racecourses": [
    {
      "name": "中山",
      "courseId": "nakayama",
      "weather": "晴",
      "trackCondition": "良",
      "races": [
        {"raceId": "202412010601", "raceNumber": 1, "raceName": "2歳未勝利", "time": "10:05", "distance": "1200m", "track": "ダート", "entryCount": 16},
        {"raceId": "202412010611", "raceNumber": 11, "raceName": "ステイヤーズS", "time": "15:25", "distance": "3600m", "track": "芝", "entryCount": 14}
      ]
    }
  ]
}`

const DatabaseStatsJSON = `{
  "status": "success",
  "database_stats": {
    "total_records": 1234567,
    "total_horses": 98765,
    "total_races": 54321,
    "years_span": 71,
    "period": "1954-2025"
  },
  "display_text": {},
  "last_updated": "2024-12-01T00:00:00Z"
}`

const PastRacesJSON = `{
  "races": [
    {"raceId": "2023-arima", "raceName": "有馬記念", "date": "2023-12-24", "racecourse": "中山", "raceNumber": 11, "distance": "2500m", "track": "芝", "grade": "G1", "weather": "晴", "trackCondition": "良", "winner": "ドウデュース", "time": "2:30.9", "entryCount": 16}
  ],
  "lastUpdate": "2024-01-01T00:00:00Z"
}`

const PastRaceDetailJSON = `{
  "raceInfo": {"raceId": "2023-arima", "raceName": "有馬記念", "date": "2023-12-24", "racecourse": "中山", "distance": "2500m", "track": "芝", "grade": "G1", "winner": "ドウデュース"},
  "horses": [
    {"number": 5, "name": "ドウデュース", "jockey": "武豊", "odds": 7.7, "popularity": 4, "result": 1, "dLogicScore": 118.2, "dLogicRank": 2},
    {"number": 9, "name": "スターズオンアース", "jockey": "ルメール", "odds": 9.0, "popularity": 5, "result": 2, "dLogicScore": 121.4, "dLogicRank": 1}
  ],
  "lastUpdate": "2024-01-01T00:00:00Z"
}`

const PastRaceAnalysisJSON = `{
  "raceInfo": {"raceId": "2023-arima", "raceName": "有馬記念"},
  "horses": [
    {"number": 5, "name": "ドウデュース", "result": 1, "dLogicScore": 118.2, "dLogicRank": 2},
    {"number": 9, "name": "スターズオンアース", "result": 2, "dLogicScore": 121.4, "dLogicRank": 1}
  ],
  "analysis": {"accuracy": 50.0, "firstPlaceHit": false, "top3Accuracy": 66.7, "dLogicWinner": "スターズオンアース", "actualWinner": "ドウデュース"}
}`

const HealthJSON = `{"message": "D-Logic API is running"}`
