package speech

type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Premade voices offered in the dashboard's voice picker.
var Voices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh"},
	{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam"},
	{ID: "yoZ06aMxZJJ28mfd3POQ", Name: "Sam"},
}

var Models = []Model{
	{ID: "eleven_multilingual_v2", Name: "Multilingual v2"},
	{ID: "eleven_turbo_v2", Name: "Turbo v2"},
	{ID: "eleven_english_v2", Name: "English v2"},
}
