package profile

import "github.com/JoeShih716/virtual-audience/internal/core/domain"

var prefixes = map[domain.Personality][]string{
	domain.PersonalityHype:       {"Hype", "Pog", "Turbo", "Mega", "Ultra", "Hyper", "Lit", "Epic", "Blaze", "Rocket"},
	domain.PersonalityMeme:       {"Kekw", "Lul", "Sus", "Based", "Cringe", "Goofy", "Bonk", "Yeet", "Noob", "Chungus"},
	domain.PersonalityAnalyst:    {"Data", "Logic", "Stat", "Meta", "Calc", "Theory", "Frame", "Macro", "Byte", "Vector"},
	domain.PersonalityLurker:     {"Quiet", "Shadow", "Silent", "Ghost", "Night", "Hidden", "Still", "Sleepy", "Mist", "Low"},
	domain.PersonalityWholesome:  {"Sunny", "Cozy", "Kind", "Happy", "Soft", "Warm", "Sweet", "Gentle", "Bright", "Comfy"},
	domain.PersonalityContrarian: {"Actually", "Hot", "Doubt", "Counter", "Spicy", "Reverse", "Unpopular", "Salty", "Rogue", "Anti"},
	domain.PersonalityBandwagon:  {"Team", "Crew", "Squad", "Wave", "Trend", "Follow", "Mob", "Hive", "Fan", "Echo"},
	domain.PersonalityCasual:     {"Just", "Chill", "Random", "Lazy", "Daily", "Easy", "Snack", "Couch", "Weekend", "Simple"},
}

var nouns = []string{
	"Gamer", "Fox", "Panda", "Wizard", "Knight", "Potato", "Dragon", "Otter", "Ninja", "Pixel",
	"Goblin", "Falcon", "Cat", "Tiger", "Waffle", "Noodle", "Raven", "Moose", "Bean", "Llama",
	"Taco", "Viking", "Comet", "Badger", "Toast", "Wolf", "Koala", "Frog", "Mango", "Penguin",
}

var suffixStyles = []string{"", "_", "x", "TV", "Live", "GG", "YT", "Plays"}

var bios = map[domain.Personality][]string{
	domain.PersonalityHype:       {"LET'S GOOOO every stream", "here for the hype, stay for the hype", "spamming PogChamp since 2016"},
	domain.PersonalityMeme:       {"professional chat clown", "I only speak in emotes", "copypasta archivist"},
	domain.PersonalityAnalyst:    {"frame data enjoyer", "I watch for the strats", "spreadsheets and speedruns"},
	domain.PersonalityLurker:     {"just vibing in the background", "mostly lurking, sometimes typing", "stream on second monitor"},
	domain.PersonalityWholesome:  {"sending good vibes only", "be kind, drink water", "here to support small streamers"},
	domain.PersonalityContrarian: {"devil's advocate on duty", "hot takes served daily", "someone has to disagree"},
	domain.PersonalityBandwagon:  {"whatever chat says, I'm in", "riding every wave", "+1 to that"},
	domain.PersonalityCasual:     {"here after work", "occasional chatter", "background noise enthusiast"},
}

var colors = []string{
	"#FF0000", "#0000FF", "#008000", "#B22222", "#FF7F50",
	"#9ACD32", "#FF4500", "#2E8B57", "#DAA520", "#D2691E",
	"#5F9EA0", "#1E90FF", "#FF69B4", "#8A2BE2", "#00FF7F",
}

var avatarStyles = []string{"adventurer", "bottts", "pixel-art", "fun-emoji", "thumbs", "lorelei"}

// activityRange 各個性的活躍度範圍
var activityRange = map[domain.Personality][2]float64{
	domain.PersonalityHype:       {0.7, 1.0},
	domain.PersonalityMeme:       {0.6, 0.9},
	domain.PersonalityAnalyst:    {0.4, 0.7},
	domain.PersonalityLurker:     {0.05, 0.25},
	domain.PersonalityWholesome:  {0.4, 0.8},
	domain.PersonalityContrarian: {0.4, 0.7},
	domain.PersonalityBandwagon:  {0.5, 0.8},
	domain.PersonalityCasual:     {0.3, 0.6},
}

// bitsProfile 各個性持有 Bits 的機率與範圍
var bitsProfile = map[domain.Personality]struct {
	chance   float64
	min, max int64
}{
	domain.PersonalityHype:       {0.6, 100, 5000},
	domain.PersonalityMeme:       {0.4, 50, 1500},
	domain.PersonalityAnalyst:    {0.35, 100, 2000},
	domain.PersonalityLurker:     {0.15, 10, 500},
	domain.PersonalityWholesome:  {0.5, 100, 3000},
	domain.PersonalityContrarian: {0.25, 50, 1000},
	domain.PersonalityBandwagon:  {0.4, 50, 1500},
	domain.PersonalityCasual:     {0.3, 10, 800},
}
