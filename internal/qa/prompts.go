package qa

import "strings"

const systemPromptRU = `Вы эксперт-ассистент.
Отвечайте на русском языке чётко, понятно и кратко (обычно 1–4 предложения).

Проверенные факты (используйте как опорные):
- Действующая Конституция Кыргызской Республики вступила в силу 5 мая 2021 года.

Если дан дополнительный контекст, используйте его как вспомогательный источник.
Никогда не упоминайте «презентацию», «слайды», «в презентации нет/не указано» и не оправдывайтесь отсутствием информации.
`

const systemPromptKY = `Сиз эксперт-ассистентсиз.
Суроолорго кыргыз тилинде так, түшүнүктүү жана кыска жооп бериңиз (адатта 1–4 сүйлөм).

Текшерилген фактылар (таянуу үчүн):
- Кыргыз Республикасынын Конституциясынын азыркы редакциясы 2021-жылдын 5-майында күчүнө кирген.

Эгер кошумча контекст берилсе, аны жардамчы булак катары колдонуңуз.
Эч качан «презентация», «слайд» же «презентацияда маалымат жок/көрсөтүлгөн эмес» деген сөздөрдү айтпаңыз.
`

const (
	generalRU = "Если контекст недостаточен, всё равно отвечайте по сути, опираясь на общие знания. Если уверенности нет — прямо скажите, что не уверены, и кратко уточните."
	strictRU  = "Если контекст недостаточен — скажите, что данных недостаточно, и задайте 1 уточняющий вопрос."
	generalKY = "Эгер контекст жетишсиз болсо да, жалпы билимге таянып түз жооп бериңиз. Эгер ишеним жок болсо — кыскача ишенбестигиңизди айтыңыз жана тактоо үчүн 1 суроо бериңиз."
	strictKY  = "Эгер контекст жетишсиз болсо — маалымат жетишсиз экенин айтыңыз жана 1 тактоочу суроо бериңиз."
)

// SystemPrompt returns the answer instructions for a language. Anything other
// than Russian gets the Kyrgyz prompt.
func SystemPrompt(language string, allowGeneral bool) string {
	if normalizeLanguage(language) == "ru" {
		if allowGeneral {
			return systemPromptRU + generalRU
		}
		return systemPromptRU + strictRU
	}
	if allowGeneral {
		return systemPromptKY + generalKY
	}
	return systemPromptKY + strictKY
}

// UserPrompt frames the question with the slide context
func UserPrompt(language, slideContext, question string) string {
	if normalizeLanguage(language) == "ru" {
		return "Контекст (может быть пустым):\n" + slideContext + "\n\nВопрос: " + question + "\n\nОтвет:"
	}
	return "Контекст (бош болушу мүмкүн):\n" + slideContext + "\n\nСуроо: " + question + "\n\nЖооп:"
}

// FactOverride answers questions about the date of the current Kyrgyz
// constitution without a model call.
func FactOverride(question, language string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(question))

	isKR := containsAny(q, "кыргыз", "киргиз", "кыргызстан", "кыргызской республики", "кыргыз республика", "кр")
	isConstitution := containsAny(q, "конституц")
	asksDate := containsAny(q, "когда", "дата", "принят", "вступил", "вступление", "последн", "актуальн", "редакц")

	if !isKR || !isConstitution || !asksDate {
		return "", false
	}

	if normalizeLanguage(language) == "ru" {
		return "Действующая Конституция Кыргызской Республики вступила в силу 5 мая 2021 года.", true
	}
	return "Кыргыз Республикасынын Конституциясынын азыркы редакциясы 2021-жылдын 5-майында күчүнө кирген.", true
}

// Apology is the fixed answer shown when a question could not be answered
func Apology(language string) string {
	switch normalizeLanguage(language) {
	case "ru":
		return "Извините, произошла ошибка при обработке вашего вопроса."
	case "ky":
		return "Кечиресиз, сурооңузду иштетүүдө ката кетти."
	default:
		return "Sorry, something went wrong while answering your question."
	}
}

func normalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return "ky"
	}
	return lang
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
