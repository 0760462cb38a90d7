package domain

// DefaultDeck names the built-in question deck.
const DefaultDeck = "classic"

// ClassicQuestions returns a fresh copy of the built-in deck.
func ClassicQuestions() []Question {
	return []Question{
		{Question: "What is the capital of France?", Answer: "Paris"},
		{Question: "In what year did the Titanic sink?", Answer: "1912"},
		{Question: "Who painted the Mona Lisa?", Answer: "Leonardo da Vinci"},
		{Question: "What is the largest planet in our solar system?", Answer: "Jupiter"},
		{Question: "Who wrote 'Romeo and Juliet'?", Answer: "William Shakespeare"},
		{Question: "What is the chemical symbol for gold?", Answer: "Au"},
		{Question: "How many continents are there on Earth?", Answer: "7"},
		{Question: "What is the tallest mountain in the world?", Answer: "Mount Everest"},
		{Question: "Who was the first person to step on the moon?", Answer: "Neil Armstrong"},
		{Question: "What is the largest ocean on Earth?", Answer: "Pacific Ocean"},
		{Question: "What is the capital of Japan?", Answer: "Tokyo"},
		{Question: "Who discovered penicillin?", Answer: "Alexander Fleming"},
		{Question: "What is the hardest natural substance on Earth?", Answer: "Diamond"},
		{Question: "What is the main language spoken in Brazil?", Answer: "Portuguese"},
		{Question: "Who is known as the father of modern physics?", Answer: "Albert Einstein"},
	}
}
