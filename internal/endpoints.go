package internal

// DefaultAPIURL is used when no backend URL is configured
const DefaultAPIURL = "https://uma-i30n.onrender.com"

// DefaultLineAccountID is the official LINE account users add as a friend
const DefaultLineAccountID = "@082thmrq"

const lineFriendURL = "https://line.me/R/ti/p/"

const (
	endpointHealth          = "/"
	endpointConditions      = "/conditions"
	endpointPredict         = "/predict"
	endpointLegacyChat      = "/chat"
	endpointChatMessage     = "/api/chat/message"
	endpointTodayRaces      = "/api/today-races"
	endpointDatabaseStats   = "/api/stats/database"
	endpointPastRaces       = "/api/past-races"
	endpointPastRace        = "/api/past-races/%s"
	endpointPastRaceAnalyze = "/api/past-races/%s/analyze"
)
