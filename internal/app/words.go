package app

import "math/rand"

// RoomCodeWords are four-letter words handed out as room codes
var RoomCodeWords = []string{
	// Animals
	"bear", "bird", "calf", "crab", "deer", "duck", "frog", "goat",
	"hawk", "lamb", "lion", "mole", "moth", "mule", "newt", "seal",
	"swan", "toad", "wolf", "wren",

	// Food & Drinks
	"bean", "cake", "corn", "kiwi", "lime", "milk", "mint",
	"pear", "plum", "rice", "salt", "soup", "taco", "tofu",

	// Nature
	"cave", "dune", "fern", "hill", "lake", "leaf", "moon", "moss",
	"pond", "rain", "reef", "rock", "sand", "snow", "star", "tide",
	"tree", "wave", "wind",

	// Objects
	"bell", "boat", "book", "cart", "coin", "drum", "flag", "fork",
	"harp", "kite", "lamp", "nest", "ring", "rope", "sock",
	"tent", "vase",
}

// BotAnswers are open-ended answers simulated players choose from
var BotAnswers = []string{
	// Places
	"the beach", "a cabin in the woods", "paris", "the mountains", "home",
	"a road trip", "tokyo", "the park", "a music festival", "the library",

	// Food & Drinks
	"pizza", "sushi", "tacos", "coffee", "chocolate",
	"pancakes", "ice cream", "ramen", "cheese", "pasta",

	// Animals
	"dog", "cat", "dolphin", "owl", "penguin",
	"fox", "horse", "panda", "otter", "turtle",

	// Everyday
	"sleeping in", "reading", "cooking", "hiking", "board games",
	"movies", "music", "gardening", "running", "dancing",
}

// GetRandomBotAnswer returns a random open-ended answer
func GetRandomBotAnswer() string {
	return BotAnswers[rand.Intn(len(BotAnswers))]
}

// GetRandomOption returns a random element of options
func GetRandomOption(options []string) string {
	if len(options) == 0 {
		return GetRandomBotAnswer()
	}
	return options[rand.Intn(len(options))]
}
