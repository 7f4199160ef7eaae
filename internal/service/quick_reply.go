package service

const (
	greetingReply = "Olá! Como posso ajudar você hoje?"
	identityReply = "Sou o assistente de conhecimento da empresa. Respondo perguntas com base nos documentos cadastrados."
	purposeReply  = "Respondo dúvidas usando os documentos que a sua empresa enviou para a base de conhecimento."
	thanksReply   = "Por nada! Se precisar de mais alguma coisa, é só perguntar."
)

// quickReplies is keyed by normalized question
var quickReplies = map[string]string{
	"oi":             greetingReply,
	"ola":            greetingReply,
	"olá":            greetingReply,
	"bom dia":        greetingReply,
	"boa tarde":      greetingReply,
	"boa noite":      greetingReply,
	"quem é você":    identityReply,
	"quem e voce":    identityReply,
	"o que você faz": purposeReply,
	"o que voce faz": purposeReply,
	"obrigado":       thanksReply,
	"obrigada":       thanksReply,
}

// quickReply matches a normalized question, ignoring trailing punctuation.
func quickReply(normalized string) (string, bool) {
	key := trimPunctuation(normalized)
	reply, ok := quickReplies[key]
	return reply, ok
}

func trimPunctuation(s string) string {
	for len(s) > 0 {
		switch s[len(s)-1] {
		case '?', '!', '.', ',':
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}
