package app

import (
	"fmt"
	"strings"
	"time"

	"red-herring-service/internal/domain"
)

// Randomizer is the source of storyteller, red fish and question draws.
// *math/rand.Rand satisfies it.
type Randomizer interface {
	Intn(n int) int
}

// The handlers below validate everything before touching st, so a returned
// error always leaves st as it was. They perform no I/O.

func joinRoom(st *domain.RoomState, playerID, token, name string, now time.Time) (domain.Player, []string, error) {
	if len(st.Players) >= domain.MaxPlayers {
		return domain.Player{}, nil, domain.ErrRoomFull
	}
	if st.Status != domain.StatusWaiting {
		return domain.Player{}, nil, domain.ErrGameAlreadyStarted
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Player{}, nil, domain.ErrEmptyName
	}

	player := domain.Player{
		ID:       playerID,
		Name:     name,
		IsAdmin:  len(st.Players) == 0,
		JoinedAt: now,
	}
	st.Players = append(st.Players, player)
	if st.Sessions == nil {
		st.Sessions = make(map[string]string)
	}
	st.Sessions[token] = playerID
	return player, []string{fmt.Sprintf("Joined room as %s", name)}, nil
}

func startGame(st *domain.RoomState, actorID string, rnd Randomizer) ([]string, error) {
	if st.Status == domain.StatusEnded {
		return nil, domain.ErrGameEnded
	}
	actor := st.Player(actorID)
	if actor == nil || !actor.IsAdmin {
		return nil, domain.ErrNotAuthorized
	}
	if !st.Status.CanTransitionTo(domain.StatusPlaying) {
		return nil, domain.ErrGameAlreadyStarted
	}
	if len(st.Players) < domain.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}
	if len(st.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	storyteller := rnd.Intn(len(st.Players))
	assignRoles(st.Players, storyteller, rnd)
	q := st.Questions[rnd.Intn(len(st.Questions))]

	st.Rounds = []domain.Round{newRound(1, q, st.Players[storyteller].ID)}
	st.CurrentRound = 0
	st.Status = domain.StatusPlaying
	return []string{"Game started!"}, nil
}

func submitAnswer(st *domain.RoomState, actorID, answer string) ([]string, error) {
	if err := requirePlaying(st); err != nil {
		return nil, err
	}
	actor := st.Player(actorID)
	if actor == nil || actor.IsStoryteller {
		return nil, domain.ErrNotAuthorized
	}
	if actor.HasSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, domain.ErrEmptyAnswer
	}

	actor.Answer = answer
	actor.HasSubmitted = true
	round := st.ActiveRound()
	round.Submissions = append(round.Submissions, domain.Submission{PlayerID: actorID, Answer: answer})
	return []string{"Answer submitted!"}, nil
}

// guessAnswer records the storyteller's verdict on target's submission.
// guessedIsRedFish is an accusation: the verdict is correct when it matches
// whether target really holds the red fish. A correct verdict adds a point to
// the round, a wrong one forfeits everything the round has accumulated.
func guessAnswer(st *domain.RoomState, actorID, targetID string, guessedIsRedFish bool) ([]string, error) {
	if err := requirePlaying(st); err != nil {
		return nil, err
	}
	if err := requireStoryteller(st, actorID); err != nil {
		return nil, err
	}
	round := st.ActiveRound()
	sub := -1
	for i := range round.Submissions {
		if round.Submissions[i].PlayerID == targetID {
			sub = i
			break
		}
	}
	target := st.Player(targetID)
	if sub < 0 || target == nil {
		return nil, domain.ErrInvalidTarget
	}
	if len(round.Submissions) < len(st.Players)-1 {
		return nil, domain.ErrSubmissionsPending
	}
	if round.Submissions[sub].Judged() {
		return nil, domain.ErrAlreadyGuessed
	}

	correct := target.HasRedFish == guessedIsRedFish
	round.Submissions[sub].IsGuessedCorrectly = &correct
	if correct {
		round.Points++
		return []string{fmt.Sprintf("Correct guess on %s!", target.Name)}, nil
	}
	round.Points = 0
	return []string{fmt.Sprintf("Wrong guess on %s, round points lost", target.Name)}, nil
}

// endGuessing settles the active round and deals the next one.
func endGuessing(st *domain.RoomState, actorID string, rnd Randomizer) ([]string, error) {
	if err := requirePlaying(st); err != nil {
		return nil, err
	}
	if err := requireStoryteller(st, actorID); err != nil {
		return nil, err
	}
	round := st.ActiveRound()
	if !canSettle(round, len(st.Players)-1) {
		return nil, domain.ErrGuessingIncomplete
	}

	var notes []string
	current := st.StorytellerIndex()
	storyteller := &st.Players[current]
	storyteller.Score += round.Points
	if round.Points > 0 {
		notes = append(notes, fmt.Sprintf("%s collected %d point(s)", storyteller.Name, round.Points))
	}

	next := (current + 1) % len(st.Players)
	assignRoles(st.Players, next, rnd)
	q := drawQuestion(st.Questions, st.Rounds, rnd)

	number := round.Number
	st.Rounds = append(st.Rounds, newRound(number+1, q, st.Players[next].ID))
	st.CurrentRound++
	notes = append(notes, fmt.Sprintf("Round %d completed! Starting round %d", number, number+1))
	return notes, nil
}

func endGame(st *domain.RoomState, actorID string) ([]string, error) {
	if st.Status == domain.StatusEnded {
		return nil, domain.ErrGameEnded
	}
	actor := st.Player(actorID)
	if actor == nil || !actor.IsAdmin {
		return nil, domain.ErrNotAuthorized
	}
	if !st.Status.CanTransitionTo(domain.StatusEnded) {
		return nil, domain.ErrGameNotStarted
	}
	st.Status = domain.StatusEnded
	return []string{"Game ended! Check the final scores"}, nil
}

func requirePlaying(st *domain.RoomState) error {
	switch st.Status {
	case domain.StatusWaiting:
		return domain.ErrGameNotStarted
	case domain.StatusEnded:
		return domain.ErrGameEnded
	}
	return nil
}

func requireStoryteller(st *domain.RoomState, actorID string) error {
	actor := st.Player(actorID)
	if actor == nil || !actor.IsStoryteller {
		return domain.ErrNotAuthorized
	}
	return nil
}

// canSettle allows ending a round once every answer is judged, or as soon as
// one verdict turned out wrong.
func canSettle(round *domain.Round, answerers int) bool {
	judged, wrong := 0, false
	for _, sub := range round.Submissions {
		if !sub.Judged() {
			continue
		}
		judged++
		if !*sub.IsGuessedCorrectly {
			wrong = true
		}
	}
	return judged == answerers || (judged > 0 && wrong)
}

// assignRoles resets per-round flags, hands the storyteller role to index
// storyteller and the red fish to a uniformly drawn other player.
func assignRoles(players []domain.Player, storyteller int, rnd Randomizer) {
	for i := range players {
		players[i].ResetForRound()
	}
	players[storyteller].IsStoryteller = true
	redFish := (storyteller + 1 + rnd.Intn(len(players)-1)) % len(players)
	players[redFish].HasRedFish = true
}

// drawQuestion prefers questions no earlier round used and falls back to the
// whole pool once it is exhausted.
func drawQuestion(pool []domain.Question, rounds []domain.Round, rnd Randomizer) domain.Question {
	used := make(map[string]struct{}, len(rounds))
	for _, r := range rounds {
		used[r.Question] = struct{}{}
	}
	available := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := used[q.Question]; !ok {
			available = append(available, q)
		}
	}
	if len(available) == 0 {
		available = pool
	}
	return available[rnd.Intn(len(available))]
}

func newRound(number int, q domain.Question, storytellerID string) domain.Round {
	return domain.Round{
		Number:        number,
		Question:      q.Question,
		CorrectAnswer: q.Answer,
		StorytellerID: storytellerID,
		Submissions:   []domain.Submission{},
	}
}
