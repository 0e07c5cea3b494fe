package narrative

// Canned openings used when no generator is available, by turn bucket.
// Every passage ends with exactly three numbered choices.
var fallbackPassages = [3][2]string{
	{
		"The morning mist hangs heavy over the battlefield as you advance with your squad. Intelligence reports enemy movement ahead.\n\n" +
			"1. Move forward cautiously through the trees.\n2. Send a scout to investigate the area.\n3. Set up defensive positions and wait.",
		"Your radio crackles with urgent messages from command. The situation is developing rapidly.\n\n" +
			"1. Request immediate reinforcements.\n2. Advance to the objective as planned.\n3. Fall back to a safer position.",
	},
	{
		"As you advance, the tension increases. Your squad spots movement in the distance.\n\n" +
			"1. Order the squad to take cover.\n2. Advance closer to investigate.\n3. Use binoculars to assess the threat.",
		"Enemy patrol spotted ahead! Your heart pounds as you make a critical decision.\n\n" +
			"1. Engage the enemy immediately.\n2. Wait for them to pass.\n3. Circle around to avoid contact.",
	},
	{
		"The objective is within reach. This is your chance to complete the mission.\n\n" +
			"1. Make a final push to the objective.\n2. Secure the area first.\n3. Call for backup before proceeding.",
		"Enemy reinforcements are approaching your position. Time is running out.\n\n" +
			"1. Complete the mission quickly.\n2. Prepare for a fighting withdrawal.\n3. Request immediate extraction.",
	},
}

var continuations = map[int]string{
	1: "You advance cautiously, weapon ready. The path ahead is fraught with danger, but your training guides you forward.",
	2: "You take cover and assess the situation. Patience and tactical thinking will serve you better than rash action.",
	3: "You coordinate with your squad, utilizing teamwork and combined tactics to overcome the challenge ahead.",
}

const defaultContinuation = "You proceed with determination, drawing upon your military training and experience to navigate the challenges ahead."

// FallbackPassage returns a canned passage for a turn: 0, 1-2 or 3 and later
func FallbackPassage(turn int, rng Random) string {
	bucket := 2
	switch {
	case turn <= 0:
		bucket = 0
	case turn < 3:
		bucket = 1
	}
	options := fallbackPassages[bucket]
	return options[rng.Intn(len(options))]
}

// Continuation returns the canned line describing the chosen option
func Continuation(choiceIndex int) string {
	if text, ok := continuations[choiceIndex]; ok {
		return text
	}
	return defaultContinuation
}
