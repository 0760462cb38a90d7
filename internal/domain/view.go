package domain

// ViewFor returns the state as playerID may see it.
//
// While a game is running other players' red fish and answers are hidden, the
// active round's correct answer is shown to the storyteller only, and answers in
// the active round are shown to the storyteller and their author. Finished
// games are fully revealed. Neither the question pool nor session tokens are
// ever part of a view.
func (s RoomState) ViewFor(playerID string) RoomState {
	view := s.Clone()
	view.Questions = nil
	view.Sessions = nil
	if view.Status != StatusPlaying {
		return view
	}

	viewer := view.Player(playerID)
	storyteller := viewer != nil && viewer.IsStoryteller

	for i := range view.Players {
		if view.Players[i].ID == playerID {
			continue
		}
		view.Players[i].HasRedFish = false
		view.Players[i].Answer = ""
	}

	round := view.ActiveRound()
	if round == nil || storyteller {
		return view
	}
	round.CorrectAnswer = ""
	for i := range round.Submissions {
		if round.Submissions[i].PlayerID != playerID {
			round.Submissions[i].Answer = ""
		}
	}
	return view
}
