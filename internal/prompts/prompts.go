// Package prompts holds the spoken dialogue text in German and English,
// plus the input validation and speech formatting helpers the dialogue uses.
package prompts

import (
	"fmt"
	"strings"

	"github.com/voicedesk/callflow/internal/domain/call"
)

// pick returns the text for the language, falling back to German.
func pick(table map[call.Language]string, lang call.Language) string {
	if s, ok := table[lang]; ok {
		return s
	}
	return table[call.LanguageGerman]
}

var greeting = map[call.Language]string{
	call.LanguageGerman:  "Hallo, mein Name ist Lisa. ich bin Ihr automatischer Servicemitarbeiter. Zur Qualitätssicherung können Gespräche aufgezeichnet werden. Drücken Sie 1, wenn Sie zustimmen, oder 2, wenn Sie der Aufzeichnung nicht zustimmen.",
	call.LanguageEnglish: "Hello, you're speaking with Liza, your voice assistant. May we process your call to improve our service quality?",
}

// Greeting is the opening line of every call, ending in the consent question.
func Greeting(lang call.Language) string { return pick(greeting, lang) }

var consentChoices = map[call.Language]string{
	call.LanguageGerman:  "Drücken Sie 1 für Ja oder 2 für Nein.",
	call.LanguageEnglish: "Press 1 for Yes or 2 for No.",
}

// ConsentChoices spells out the consent keypad options.
func ConsentChoices(lang call.Language) string { return pick(consentChoices, lang) }

var consentInvalid = map[call.Language]string{
	call.LanguageGerman:  "Entschuldigung, ich habe Ihre Antwort nicht verstanden. Drücken Sie 1 für Ja oder 2 für Nein.",
	call.LanguageEnglish: "Sorry, I didn't understand your response. Press 1 for Yes or 2 for No.",
}

// ConsentInvalid is spoken when the consent digit is neither 1 nor 2.
func ConsentInvalid(lang call.Language) string { return pick(consentInvalid, lang) }

var consentAccepted = map[call.Language]string{
	call.LanguageGerman:  "Vielen Dank für Ihre Zustimmung. Bitte teilen Sie mir nun mit, wie ich Ihnen behilflich sein kann.",
	call.LanguageEnglish: "Thank you for your consent. I'm Liza and I'm happy to help you. How can I help you today?",
}

// ConsentAccepted acknowledges a positive consent answer.
func ConsentAccepted(lang call.Language) string { return pick(consentAccepted, lang) }

var consentDeclined = map[call.Language]string{
	call.LanguageGerman:  "Wir respektieren Ihre Entscheidung und beenden das Gespräch.",
	call.LanguageEnglish: "We respect your decision and will end the call.",
}

// ConsentDeclined is spoken before hanging up on a declined consent.
func ConsentDeclined(lang call.Language) string { return pick(consentDeclined, lang) }

var availabilityQuestion = map[call.Language]string{
	call.LanguageGerman:  "Haben Sie eine Bestellnummer zur Hand? Drücken Sie 1 für Ja, um den Status Ihrer Bestellung abzufragen, oder 2, um stattdessen eine Nachricht zu hinterlassen.",
	call.LanguageEnglish: "Do you have an order number at hand? Press 1 for Yes to check the status of your order, or 2 to leave a message instead.",
}

// AvailabilityQuestion asks whether the caller can provide an order number.
func AvailabilityQuestion(lang call.Language) string { return pick(availabilityQuestion, lang) }

var availabilityInvalid = map[call.Language]string{
	call.LanguageGerman:  "Entschuldigung, ich habe Ihre Antwort nicht verstanden. Drücken Sie 1, wenn Sie eine Bestellnummer haben, oder 2, um eine Nachricht zu hinterlassen.",
	call.LanguageEnglish: "Sorry, I didn't understand your response. Press 1 if you have an order number, or 2 to leave a message.",
}

// AvailabilityInvalid is spoken when the availability digit is neither 1 nor 2.
func AvailabilityInvalid(lang call.Language) string { return pick(availabilityInvalid, lang) }

var orderNumberPrompt = map[call.Language]string{
	call.LanguageGerman:  "Bitte geben Sie jetzt Ihre Bestellnummer ein und drücken Sie die Raute-Taste, wenn Sie fertig sind.",
	call.LanguageEnglish: "If you would like to know the status of your item, please enter your order number using the keypad. Press the hash key # when you are finished.",
}

// OrderNumberPrompt asks the caller to type their order number.
func OrderNumberPrompt(lang call.Language) string { return pick(orderNumberPrompt, lang) }

var orderNumberRetry = map[call.Language]string{
	call.LanguageGerman:  "Bitte geben Sie Ihre Bestellnummer erneut über die Tastatur ein. Drücken Sie die Raute-Taste # wenn Sie fertig sind.",
	call.LanguageEnglish: "Please enter your order number again using the keypad. Press the hash key # when you are finished.",
}

// OrderNumberRetry re-asks for the order number after an invalid attempt.
func OrderNumberRetry(lang call.Language) string { return pick(orderNumberRetry, lang) }

// OrderNumberInvalid rejects an input the validator refused.
func OrderNumberInvalid(lang call.Language, input string) string {
	if lang == call.LanguageEnglish {
		return fmt.Sprintf("Sorry, I didn't recognize '%s' as a valid order number. Please enter your order number again using the keypad.", input)
	}
	return fmt.Sprintf("Entschuldigung, ich habe '%s' nicht als gültige Bestellnummer erkannt. Bitte geben Sie Ihre Bestellnummer erneut über die Tastatur ein.", input)
}

// ConfirmPrompt reads the typed number back, digit by digit, and asks for
// confirmation.
func ConfirmPrompt(lang call.Language, orderNumber string) string {
	spoken := FormatOrderNumberForSpeech(orderNumber)
	if lang == call.LanguageEnglish {
		return fmt.Sprintf("You have entered order number %s. Is this correct? Press 1 for Yes or 2 for No.", spoken)
	}
	return fmt.Sprintf("Sie haben die folgende Bestellnummer %s eingetippt? Bitte bestätigen Sie durch 1 für Ja oder 2 für Nein.", spoken)
}

// ConfirmInvalid re-asks the confirmation question after an unrecognized digit.
func ConfirmInvalid(lang call.Language, orderNumber string) string {
	spoken := FormatOrderNumberForSpeech(orderNumber)
	if lang == call.LanguageEnglish {
		return fmt.Sprintf("Sorry, I didn't understand your response. You have entered order number %s. Is this correct? Press 1 for Yes or 2 for No.", spoken)
	}
	return fmt.Sprintf("Entschuldigung, ich habe Ihre Antwort nicht verstanden. Sie haben die Bestellnummer %s eingegeben. Ist das korrekt? Drücken Sie 1 für Ja oder 2 für Nein.", spoken)
}

// CheckingStatus is spoken while the order lookup runs.
func CheckingStatus(lang call.Language, orderNumber string) string {
	spoken := FormatOrderNumberForSpeech(orderNumber)
	if lang == call.LanguageEnglish {
		return fmt.Sprintf("Thank you! I have confirmed your order number %s. I am checking the status for you. Please wait a moment.", spoken)
	}
	return fmt.Sprintf("Vielen Dank! Ich habe Ihre Bestellnummer %s bestätigt. Ich prüfe den Status für Sie. Bitte warten Sie einen Moment.", spoken)
}

// OrderNotFound is spoken when the order system has no matching order.
func OrderNotFound(lang call.Language, orderNumber string) string {
	spoken := FormatOrderNumberForSpeech(orderNumber)
	if lang == call.LanguageEnglish {
		return fmt.Sprintf("Sorry, I couldn't find an order with number %s in our system. Please check the number or contact our customer service.", spoken)
	}
	return fmt.Sprintf("Entschuldigung, ich konnte keinen Auftrag mit der Nummer %s in unserem System finden. Bitte überprüfen Sie die Nummer oder kontaktieren Sie unseren Kundenservice.", spoken)
}

var overdueTransfer = map[call.Language]string{
	call.LanguageGerman:  "Ihre Lieferung hat sich leider verzögert. Ich verbinde Sie jetzt mit einem unserer Mitarbeiter. Einen Moment bitte.",
	call.LanguageEnglish: "Unfortunately your delivery has been delayed. I'm now connecting you with one of our staff. Please hold.",
}

// OverdueTransfer is the fixed hand-off script for overdue deliveries.
func OverdueTransfer(lang call.Language) string { return pick(overdueTransfer, lang) }

var voiceMessageChoice = map[call.Language]string{
	call.LanguageGerman:  "Wenn Sie noch Fragen haben, drücken Sie 1 um eine Nachricht zu hinterlassen, oder drücken Sie 2 um das Gespräch zu beenden.",
	call.LanguageEnglish: "If you have any questions, press 1 to leave a message, or press 2 to end the call.",
}

// VoiceMessageChoice offers the caller the voicemail option.
func VoiceMessageChoice(lang call.Language) string { return pick(voiceMessageChoice, lang) }

var voiceMessageInvalid = map[call.Language]string{
	call.LanguageGerman:  "Entschuldigung, ich habe Ihre Antwort nicht verstanden. Wenn Sie noch Fragen haben, drücken Sie 1. Um das Gespräch zu beenden, drücken Sie 2.",
	call.LanguageEnglish: "Sorry, I didn't understand your response. If you have questions, press 1. To end the call, press 2.",
}

// VoiceMessageInvalid re-asks the voicemail question after an unrecognized digit.
func VoiceMessageInvalid(lang call.Language) string { return pick(voiceMessageInvalid, lang) }

var recordPrompt = map[call.Language]string{
	call.LanguageGerman:  "Bitte hinterlassen Sie nach dem Signalton eine Nachricht. Sie erhalten innerhalb von 24 Stunden eine Antwort per E-Mail.",
	call.LanguageEnglish: "Please leave a message after the tone. You will receive a reply by email within 24 hours.",
}

// RecordPrompt precedes the recording beep.
func RecordPrompt(lang call.Language) string { return pick(recordPrompt, lang) }

var recordedThanks = map[call.Language]string{
	call.LanguageGerman:  "Vielen Dank für Ihre Nachricht. Wir melden uns innerhalb von 24 Stunden bei Ihnen. Auf Wiedersehen!",
	call.LanguageEnglish: "Thank you for your message. We will contact you within 24 hours. Goodbye!",
}

// RecordedThanks closes the call after a voicemail was captured.
func RecordedThanks(lang call.Language) string { return pick(recordedThanks, lang) }

var goodbye = map[call.Language]string{
	call.LanguageGerman:  "Wir bedanken uns für Ihren Anruf und stehen bei weiteren Fragen zur Verfügung!",
	call.LanguageEnglish: "Thank you for calling. We are available for any further questions!",
}

// Goodbye is the standard closing line.
func Goodbye(lang call.Language) string { return pick(goodbye, lang) }

var systemError = map[call.Language]string{
	call.LanguageGerman:  "Entschuldigung, es ist ein Fehler aufgetreten. Bitte versuchen Sie es später erneut.",
	call.LanguageEnglish: "Sorry, there was an error. Please try again later.",
}

// SystemError is spoken on unrecoverable errors, including unknown calls.
func SystemError(lang call.Language) string { return pick(systemError, lang) }

// StatusInfo carries the resolved order facts the status narration needs.
type StatusInfo struct {
	OrderNumber         string
	CustomerName        string
	AlreadyPaid         string
	FullAmount          string
	OrderDate           string
	ProductionStart     string
	ProductionMinWeeks  int
	ProductionMaxWeeks  int
	DeliveryWeek        int
	DeliveryYear        int
	DeliveryWindowStart string
	DeliveryWindowEnd   string
}

// StatusNarration builds the spoken delivery status report.
func StatusNarration(lang call.Language, info StatusInfo) string {
	spoken := FormatOrderNumberForSpeech(info.OrderNumber)

	if lang == call.LanguageEnglish {
		var b strings.Builder
		fmt.Fprintf(&b, "The status of your order %s is: ", info.OrderNumber)
		fmt.Fprintf(&b, "%s Euros have been paid out of %s Euros total. ", info.AlreadyPaid, info.FullAmount)
		if info.CustomerName != "" {
			fmt.Fprintf(&b, "The order was placed by %s. ", info.CustomerName)
		}
		fmt.Fprintf(&b, "Your item is currently in production with an expected lead time of %d to %d weeks. ",
			info.ProductionMinWeeks, info.ProductionMaxWeeks)
		fmt.Fprintf(&b, "We expect delivery in calendar week %d/%d. ", info.DeliveryWeek, info.DeliveryYear)
		b.WriteString("You will receive an email with further details.")
		return b.String()
	}

	return fmt.Sprintf(`Ihr Auftrag %s:
Sie haben für Ihren Auftrag insgesamt %s Euro bezahlt.
Der gesamte Rechnungsbetrag beträgt %s Euro.

Der Auftrag wurde durch den Kunden %s erteilt.
Ihr Auftrag wurde am %s angenommen und am %s an die Produktion übergeben.

Ihre Ware befindet sich derzeit in der Produktion und hat eine voraussichtliche Lieferzeit von %d bis %d Wochen.

Wir erwarten die Lieferung in der Kalenderwoche %d/%d, also in der Woche vom %s bis %s.

Wir freuen uns, Ihnen ein hochwertiges Produkt liefern zu dürfen,
und halten Sie selbstverständlich über den weiteren Verlauf auf dem Laufenden.`,
		spoken,
		info.AlreadyPaid, info.FullAmount,
		info.CustomerName,
		info.OrderDate, info.ProductionStart,
		info.ProductionMinWeeks, info.ProductionMaxWeeks,
		info.DeliveryWeek, info.DeliveryYear,
		info.DeliveryWindowStart, info.DeliveryWindowEnd)
}

// FormatOrderNumberForSpeech spaces the characters out so the voice engine
// reads them one by one.
func FormatOrderNumberForSpeech(orderNumber string) string {
	runes := []rune(orderNumber)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// ValidateOrderNumber accepts digit-only inputs between 2 and 20 characters.
func ValidateOrderNumber(input string) bool {
	input = strings.TrimSpace(input)
	if len(input) < 2 || len(input) > 20 {
		return false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
