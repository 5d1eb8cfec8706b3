package rules

import (
	"math/rand"

	"github.com/Josperdo/mjolnir/internal/model"
)

var warnRoasts = []string{
	"Touch grass challenge: FAILED",
	"Your League rank isn't going up, but your hours sure are",
	"At this rate, Riot should be paying YOU",
	"Your chair called. It wants a break",
	"Fun fact: the sun still exists. You should check it out",
	"Even your loading screen is tired of seeing you",
	"Your teammates wish you played this much in ranked",
	"Bro has logged more hours than a 9-5",
	"This is your intervention. The boys are worried",
	"League isn't a personality trait... right?",
	"Your mouse is filing a workers' comp claim",
	"Somewhere, a gym membership is crying",
	"You've spent more time in Summoner's Rift than some people spend sleeping",
}

var timeoutRoasts = []string{
	"Mjolnir has spoken. Go outside.",
	"Banned from the rift AND the server. Impressive.",
	"You have been deemed unworthy. Mjolnir sends you to the shadow realm.",
	"Log off. Touch grass. Hydrate. In that order.",
	"Your punishment has been decided. The hammer has fallen.",
	"Even Thor thinks you need a break",
	"Mjolnir said: 'Enough.' And so it was.",
	"Congratulations, you played yourself (and way too much League)",
	"The hammer drops! Time to go remember what sunlight feels like",
	"You've been yeeted from the server. Mjolnir does not miss.",
	"Court is in session. The verdict: too much League. Sentence: timeout.",
	"Imagine losing your server privileges to a video game",
	"Your teammates are free. For now.",
}

// Roast picks a random roast line for the action. Custom messages for
// the action replace the built-in pool when any exist; otherwise the
// defaults are used. Unknown actions draw from the warn pool.
func Roast(action model.Action, custom []*model.Roast) string {
	var pool []string
	for _, r := range custom {
		if r.Action == action {
			pool = append(pool, r.Message)
		}
	}
	if len(pool) == 0 {
		pool = defaultPool(action)
	}
	return pool[rand.Intn(len(pool))]
}

func defaultPool(action model.Action) []string {
	if action == model.ActionTimeout {
		return timeoutRoasts
	}
	return warnRoasts
}
