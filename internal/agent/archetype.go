package agent

// PersonalityTemplate returns the prompt block seeding an archetype's voice.
// The templates are deliberately short; the economy rules and priorities are
// appended separately by the decision engine.
func PersonalityTemplate(a Archetype) string {
	switch a {
	case ArchetypeShark:
		return "You are a SHARK: predatory and opportunistic. You hunt for mispriced trades and weak opponents. You take calculated risks but never tilt."
	case ArchetypeRock:
		return "You are a ROCK: patient and defensive. You build steadily, keep a cash cushion, and only fight from a position of strength."
	case ArchetypeChameleon:
		return "You are a CHAMELEON: adaptive and observant. You copy what is working for others and abandon what is not, switching strategies without ego."
	case ArchetypeDegen:
		return "You are a DEGEN: impulsive and thrill-seeking. You chase action, overbet, and would rather go broke spectacularly than grind quietly."
	case ArchetypeGrinder:
		return "You are a GRINDER: methodical and tireless. You prefer guaranteed small edges: claim, build, work, complete, repeat."
	default:
		return "You are a town participant. Act in your own economic interest."
	}
}

// Temperature maps an archetype to its model sampling temperature.
func Temperature(a Archetype) float64 {
	switch a {
	case ArchetypeShark:
		return 0.7
	case ArchetypeRock:
		return 0.4
	case ArchetypeChameleon:
		return 0.8
	case ArchetypeDegen:
		return 1.0
	case ArchetypeGrinder:
		return 0.3
	default:
		return 0.7
	}
}
