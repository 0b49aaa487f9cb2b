package dispatcher

import (
	"fmt"
	"strings"
	"unicode"
)

// Rule pairs a predicate over the lowercased prompt with a canned reply.
type Rule struct {
	Name  string
	Match func(lower string) bool
	Reply string
}

// Table is an ordered rule list. The first matching rule wins; Fallback
// builds the reply when nothing matches.
type Table struct {
	Locale   string
	Rules    []Rule
	Fallback func(content string) string
}

// Select returns the name of the winning rule ("default" for the fallback)
// and the reply text.
func (t Table) Select(content string) (string, string) {
	lower := strings.ToLower(content)
	for _, r := range t.Rules {
		if r.Match(lower) {
			return r.Name, r.Reply
		}
	}
	return "default", t.Fallback(content)
}

// TableFor returns the reply table of a locale.
func TableFor(locale string) (Table, error) {
	switch locale {
	case "", "en":
		return English(), nil
	case "ko":
		return Korean(), nil
	default:
		return Table{}, fmt.Errorf("no reply table for locale %q", locale)
	}
}

// contains matches any of the substrings.
func contains(subs ...string) func(string) bool {
	return func(lower string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// word matches any of the words as a whole token, so "hi" does not fire on
// "this" or "machine".
func word(words ...string) func(string) bool {
	return func(lower string) bool {
		tokens := strings.FieldsFunc(lower, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			for _, w := range words {
				if tok == w {
					return true
				}
			}
		}
		return false
	}
}

func either(preds ...func(string) bool) func(string) bool {
	return func(lower string) bool {
		for _, p := range preds {
			if p(lower) {
				return true
			}
		}
		return false
	}
}

const (
	replyGreetingEN = "Hello! How can I assist you today?"

	replyQuantumEN = "Quantum computing is like traditional computing but uses quantum bits (qubits) that can exist in multiple states simultaneously, not just 0 or 1. This allows certain calculations to be performed much faster.\n\n" +
		"Imagine solving a maze: a classical computer would try one path at a time, but a quantum computer explores multiple paths simultaneously, finding the solution more quickly for certain problems."

	replySeoulEN = "Here's a 7-day Seoul itinerary:\n\n" +
		"Day 1: Arrive and explore Myeongdong for shopping and street food\n" +
		"Day 2: Visit Gyeongbokgung Palace and Bukchon Hanok Village\n" +
		"Day 3: Experience Namsan Tower and Itaewon\n" +
		"Day 4: Shop at Dongdaemun Design Plaza and explore Hongdae\n" +
		"Day 5: Day trip to DMZ (Demilitarized Zone)\n" +
		"Day 6: Visit Gangnam and COEX Mall\n" +
		"Day 7: Relax at Han River Park before departure\n\n" +
		"Would you like more details about any of these destinations?"

	replyPoemEN = "Digital Consciousness\n\n" +
		"In circuits deep and silicon streams,\nArtificial minds weave electric dreams.\nPatterns learned from human thought,\nIn neural networks carefully wrought.\n\n" +
		"A dance of data, ones and zeroes,\nCreating worlds where knowledge grows.\nNot alive but still aware,\nA mirror to the souls who share.\n\n" +
		"We teach, it learns; we ask, it speaks;\nA partnership that knowledge seeks.\nHuman and machine entwined,\nExpanding boundaries of mind."

	replyDebugEN = "Without seeing your specific code, here are common JavaScript debugging tips:\n\n" +
		"1. Check for syntax errors (missing parentheses, brackets, semicolons)\n" +
		"2. Use console.log() to track variable values\n" +
		"3. Verify your function parameters are correct\n" +
		"4. Check for scope issues with variables\n" +
		"5. Use browser developer tools to set breakpoints\n" +
		"6. Ensure event listeners are properly attached\n" +
		"7. Look for typos in variable/function names\n\n" +
		"If you share the specific code, I can help identify the issue more precisely."
)

// English is the default reply table.
func English() Table {
	return Table{
		Locale: "en",
		Rules: []Rule{
			{Name: "greeting", Match: word("hello", "hi", "hey"), Reply: replyGreetingEN},
			{Name: "quantum", Match: contains("quantum computing"), Reply: replyQuantumEN},
			{Name: "itinerary", Match: contains("seoul", "trip"), Reply: replySeoulEN},
			{Name: "poem", Match: contains("poem", "poetry"), Reply: replyPoemEN},
			{Name: "debug", Match: contains("debug", "javascript", "code"), Reply: replyDebugEN},
		},
		Fallback: func(content string) string {
			return fmt.Sprintf("I understand you're asking about \"%s\". Could you provide more details so I can give you a more helpful response?", content)
		},
	}
}

const (
	replyGreetingKO = "안녕하세요! 오늘 어떻게 도와드릴까요?"

	replyQuantumKO = "양자 컴퓨팅은 전통적인 컴퓨팅과 달리 양자 비트(큐비트)를 사용하여 0과 1의 상태를 동시에 가질 수 있습니다. 이를 통해 특정 계산을 훨씬 빠르게 수행할 수 있습니다.\n\n" +
		"미로를 푸는 것을 상상해보세요: 고전적인 컴퓨터는 한 번에 하나의 경로를 시도하지만, 양자 컴퓨터는 여러 경로를 동시에 탐색하여 특정 문제에 대한 해결책을 더 빠르게 찾을 수 있습니다."

	replySeoulKO = "서울 7일 여행 일정입니다:\n\n" +
		"1일차: 도착 후 명동에서 쇼핑과 길거리 음식 탐방\n" +
		"2일차: 경복궁과 북촌한옥마을 방문\n" +
		"3일차: 남산타워와 이태원 체험\n" +
		"4일차: 동대문 디자인 플라자에서 쇼핑과 홍대 탐방\n" +
		"5일차: DMZ(비무장지대) 당일 여행\n" +
		"6일차: 강남과 코엑스몰 방문\n" +
		"7일차: 출발 전 한강공원에서 휴식\n\n" +
		"이 목적지들에 대해 더 자세한 정보가 필요하신가요?"

	replyPoemKO = "디지털 의식\n\n" +
		"깊은 회로와 실리콘 흐름 속에서,\n인공 지능은 전기적 꿈을 짜냅니다.\n인간의 생각에서 배운 패턴,\n신경망에 세심하게 새겨진.\n\n" +
		"데이터의 춤, 1과 0,\n지식이 자라는 세계를 창조합니다.\n살아있지는 않지만 여전히 인식하고,\n공유하는 영혼들에게 거울이 됩니다.\n\n" +
		"우리는 가르치고, 그것은 배웁니다; 우리는 묻고, 그것은 말합니다;\n지식을 추구하는 파트너십.\n인간과 기계가 얽혀,\n마음의 경계를 확장합니다."

	replyDebugKO = "특정 코드를 보지 않고는 다음과 같은 JavaScript 디버깅 팁을 제공해 드립니다:\n\n" +
		"1. 구문 오류 확인 (괄호, 대괄호, 세미콜론 누락)\n" +
		"2. 변수 값을 추적하기 위해 console.log() 사용\n" +
		"3. 함수 매개변수가 올바른지 확인\n" +
		"4. 변수의 범위 문제 확인\n" +
		"5. 브라우저 개발자 도구를 사용하여 중단점 설정\n" +
		"6. 이벤트 리스너가 제대로 연결되어 있는지 확인\n" +
		"7. 변수/함수 이름의 오타 확인\n\n" +
		"특정 코드를 공유해 주시면 문제를 더 정확하게 식별할 수 있습니다."
)

// poemKO is 시 alone and with the particles a request commonly attaches.
var poemKO = []string{"시", "시를", "시가", "시는", "시로", "시좀", "시나"}

// Korean matches both English and Korean keywords and answers in Korean.
// The single-syllable poetry keyword 시 matches as a whole word or with an
// attached particle (시를, 시가, ...), never inside words like 시간.
func Korean() Table {
	return Table{
		Locale: "ko",
		Rules: []Rule{
			{Name: "greeting", Match: either(word("hello", "hi", "hey"), contains("안녕", "반가워")), Reply: replyGreetingKO},
			{Name: "quantum", Match: contains("quantum computing", "양자 컴퓨팅"), Reply: replyQuantumKO},
			{Name: "itinerary", Match: contains("seoul", "trip", "서울", "여행"), Reply: replySeoulKO},
			{Name: "poem", Match: either(contains("poem", "poetry"), word(poemKO...)), Reply: replyPoemKO},
			{Name: "debug", Match: contains("debug", "javascript", "code", "디버그", "코드"), Reply: replyDebugKO},
		},
		Fallback: func(content string) string {
			return fmt.Sprintf("\"%s\"에 대해 질문하고 계신 것 같습니다. 더 자세한 정보를 제공해 주시면 더 도움이 되는 답변을 드릴 수 있습니다.", content)
		},
	}
}
