// Package catalog holds the language-keyed user-facing message templates.
// Lookups fall back to English when a language or key is missing, and
// {param}-style placeholders are substituted literally.
package catalog

import "strings"

const fallbackLanguage = "en"

// Lookup returns the template for key in the given language with all
// {name}-style placeholders from params substituted. Unknown languages and
// keys fall back to the English entry; a key missing from English too
// returns the empty string.
func Lookup(language, key string, params map[string]string) string {
	langMessages, ok := messages[language]
	if !ok {
		langMessages = messages[fallbackLanguage]
	}

	template, ok := langMessages[key]
	if !ok {
		template = messages[fallbackLanguage][key]
	}

	for name, value := range params {
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}

	return template
}

// Languages lists the catalog's supported language codes.
func Languages() []string {
	langs := make([]string, 0, len(messages))
	for lang := range messages {
		langs = append(langs, lang)
	}
	return langs
}

var messages = map[string]map[string]string{
	"en": {
		"askName":         "Great! Now, what's your name?",
		"askGender":       "Thanks! Now, what's your gender?",
		"askPreference":   "What's your sexual preference?",
		"askBirthdate":    "Can you give me your birthdate in the format {format}?",
		"askNameSettings": "Please enter your name:",
		"settingsPrompt":  "What would you like to change?",

		"male":             "Male",
		"female":           "Female",
		"heterosexual":     "Heterosexual",
		"homosexual":       "Homosexual",
		"bisexual":         "Bisexual",
		"name":             "Name",
		"gender":           "Gender",
		"sexualPreference": "Sexual Preference",
		"language":         "Language",
		"birthdate":        "Birthdate",
		"uploadStyle":      "Upload Conversation Style",

		"styleInstructions": "To help me understand your conversation style, send me screenshots of your past conversations with the caption 'learn'.",

		"configType":        "Your {config_type} has been updated to: {value}",
		"genderUpdated":     "Your gender has been set to: {gender}",
		"preferenceUpdated": "Your sexual preference has been set to: {preference}",
		"settingsSummary": "Perfect! Here are your settings:\n\n" +
			"Name: {name}\n" +
			"Gender: {gender}\n" +
			"Sexual Preference: {preference}\n" +
			"Language: {language}\n" +
			"Age: {age}\n\n" +
			"Your settings have been saved. You can edit them anytime by typing /settings\n\n" +
			"How can I help you?",

		"welcomeBack":      "Hi {name} ! You already configured your bot, to change your settings, type /settings instead",
		"processingPhoto":  "Analyzing image...",
		"invalidBirthdate": "Invalid birthdate format. Please use the format {format}",
		"errorProcessing":  "Sorry, I couldn't process your message. Please try again.",
		"errorGeneric":     "An error occurred. Please try again.",
		"resetConfirm":     "Our conversation has been cleared. Fresh start!",
		"help": "I'm The Rizzard, your personal dating coach.\n\n" +
			"Send me a message or a screenshot of a conversation or profile and I'll tell you what to say.\n\n" +
			"/start - set up your profile\n" +
			"/settings - change your settings\n" +
			"/reset - clear our conversation\n" +
			"/help - show this message",
	},
	"fr": {
		"askName":         "Super ! Comment tu t'appelles ?",
		"askGender":       "Merci ! Maintenant, quel est ton genre ?",
		"askPreference":   "Quelle est ta préférence sexuelle ?",
		"askBirthdate":    "Tu peux me donner ta date de naissance au format {format}",
		"askNameSettings": "Entre ton nom :",
		"settingsPrompt":  "Que souhaites-tu modifier ?",

		"male":             "Homme",
		"female":           "Femme",
		"heterosexual":     "Hétérosexuel",
		"homosexual":       "Homosexuel",
		"bisexual":         "Bisexuel",
		"name":             "Nom",
		"gender":           "Genre",
		"sexualPreference": "Préférence sexuelle",
		"language":         "Langue",
		"birthdate":        "Date de naissance",
		"uploadStyle":      "Télécharger style de conversation",

		"styleInstructions": "Pour m'aider à comprendre ton style de conversation, envoie-moi des captures d'écran de tes conversations passées avec la légende 'learn'.",

		"configType":        "Ton {config_type} a été mis à jour à : {value}",
		"genderUpdated":     "Ton genre a été défini sur : {gender}",
		"preferenceUpdated": "Ta préférence sexuelle a été définie sur : {preference}",
		"settingsSummary": "Parfait ! Voici tes paramètres :\n\n" +
			"Nom : {name}\n" +
			"Genre : {gender}\n" +
			"Préférence sexuelle : {preference}\n" +
			"Langue : {language}\n" +
			"Age : {age}\n\n" +
			"Tes paramètres ont été enregistrés. Tu peux les modifier à tout moment en tapant /settings\n\n" +
			"Comment je peux t'aider ?",

		"welcomeBack":      "Salut {name} ! Tu as déjà configuré ton bot, pour modifier tes paramètres, tape /settings à la place",
		"processingPhoto":  "Analyse de l'image...",
		"invalidBirthdate": "Format de date invalide. Utilise le format {format}",
		"errorProcessing":  "Désolé, je n'ai pas pu traiter ton message. Essaie à nouveau.",
		"errorGeneric":     "Une erreur s'est produite. Essaie à nouveau.",
		"resetConfirm":     "Notre conversation a été effacée. On repart à zéro !",
		"help": "Je suis The Rizzard, ton coach de rencontres personnel.\n\n" +
			"Envoie-moi un message ou une capture d'écran d'une conversation ou d'un profil et je te dirai quoi répondre.\n\n" +
			"/start - configurer ton profil\n" +
			"/settings - modifier tes paramètres\n" +
			"/reset - effacer notre conversation\n" +
			"/help - afficher ce message",
	},
}
