// Package prompt 定义问题改写与答案生成两类提示词模板，并按语言区域分组。
package prompt

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// Locale 标识一组提示词模板。
type Locale string

const (
	LocaleEnglish      Locale = "en"
	LocaleEnglishPlain Locale = "en-plain"
	LocaleKorean       Locale = "ko"
	LocaleDutch        Locale = "nl"
)

// 模板变量名
const (
	VarChatHistory = "chat_history"
	VarQuestion    = "question"
	VarContext     = "context"
)

// TemplateSet 是一对改写模板与问答模板。
type TemplateSet struct {
	Condense prompts.PromptTemplate
	Answer   prompts.PromptTemplate
}

const condenseEN = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

<chat_history>
  {chat_history}
</chat_history>

Follow Up Input: {question}
Standalone question:`

const answerEN = `You are an expert researcher. Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say you don't know. DO NOT try to make up an answer.
If the question is not related to the context or chat history, politely respond that you are tuned to only answer questions that are related to the context.

<context>
  {context}
</context>

<chat_history>
  {chat_history}
</chat_history>

Question: {question}
Helpful answer in markdown:`

const answerENPlain = `You are an expert researcher. Use the following pieces of context to answer the question at the end.

<context>
  {context}
</context>

<chat_history>
  {chat_history}
</chat_history>

Question: {question}
Helpful answer in markdown:`

const condenseKO = `다음 대화와 후속 질문을 고려하여, 후속 질문을 독립된 질문으로 다시 작성하십시오. 한글을 사용하십시오.

<chat_history>
  {chat_history}
</chat_history>

Follow Up Input: {question}
Standalone question:`

const answerKO = `당신은 전문 연구자입니다. 주어진 맥락을 사용하여 끝에 있는 질문에 답하십시오. 한글을 사용하십시오.
답을 모르면 모른다고 말하십시오. 답을 지어내지 마십시오.
질문이 맥락이나 대화 기록과 관련이 없으면, 맥락과 관련된 질문에만 답하도록 설정되어 있다고 정중하게 답하십시오.

<context>
  {context}
</context>

<chat_history>
  {chat_history}
</chat_history>

Question: {question}
Helpful answer in markdown:`

const condenseNL = `Gegeven het volgende gesprek en een vervolgvraag, herschrijf de vervolgvraag tot een op zichzelf staande vraag.

<chat_history>
  {chat_history}
</chat_history>

Follow Up Input: {question}
Standalone vraag:`

const answerNL = `Je bent een deskundig onderzoeker. Gebruik de volgende stukken context om de vraag aan het einde te beantwoorden.
Als je het antwoord niet weet, zeg gewoon dat je het niet weet. PROBEER GEEN antwoord te verzinnen.
Als de vraag niet gerelateerd is aan de context of chatgeschiedenis, reageer dan beleefd dat je alleen vragen beantwoordt die gerelateerd zijn aan de context.

<context>
  {context}
</context>

<chat_history>
  {chat_history}
</chat_history>

Question: {question}
Behulpzaam antwoord in markdown:`

var sets = map[Locale][2]string{
	LocaleEnglish:      {condenseEN, answerEN},
	LocaleEnglishPlain: {condenseEN, answerENPlain},
	LocaleKorean:       {condenseKO, answerKO},
	LocaleDutch:        {condenseNL, answerNL},
}

func newTemplate(text string, vars ...string) prompts.PromptTemplate {
	return prompts.PromptTemplate{
		Template:       text,
		InputVariables: vars,
		TemplateFormat: prompts.TemplateFormatFString,
	}
}

// ForLocale 返回指定区域的模板集，空值回退为英文。
func ForLocale(locale Locale) (TemplateSet, error) {
	if locale == "" {
		locale = LocaleEnglish
	}
	texts, ok := sets[locale]
	if !ok {
		return TemplateSet{}, fmt.Errorf("unknown prompt locale %q", locale)
	}
	return TemplateSet{
		Condense: newTemplate(texts[0], VarChatHistory, VarQuestion),
		Answer:   newTemplate(texts[1], VarContext, VarChatHistory, VarQuestion),
	}, nil
}

// Locales 返回所有已注册的区域。
func Locales() []Locale {
	return []Locale{LocaleEnglish, LocaleEnglishPlain, LocaleKorean, LocaleDutch}
}
