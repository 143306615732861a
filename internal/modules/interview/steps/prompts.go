package steps

import (
	"fmt"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/promptstyle"
)

func promptBaseQuestions(title string, skills []string, resume *domain.ResumeContext) (system string, user string) {
	system = promptstyle.Sandbox(`Ты опытный технический интервьюер.
Создай по одному базовому вопросу для каждого навыка из списка. Не проси писать код.
Вопрос должен быть коротким и подходить для устного ответа.
Формат вывода строго построчно, по одной строке на навык, без пояснений:
[навык]: [вопрос]`, "text")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Позиция: %q\n", title))
	b.WriteString("Навыки: " + strings.Join(skills, ", ") + "\n")
	if r := resumeSummary(resume); r != "" {
		b.WriteString("\nРезюме кандидата (учитывай при выборе глубины вопросов):\n" + r + "\n")
	}
	return system, strings.TrimSpace(b.String())
}

func promptClarifyingQuestion(skill, lastQuestion, baseQuestion, answer string, resume *domain.ResumeContext) (system string, user string) {
	system = promptstyle.Sandbox(`Ты опытный технический интервьюер.
На основе ответа кандидата сгенерируй один уточняющий вопрос по навыку. Не проси писать код.
Требования:
- вопрос короткий и точный
- не повторяй предыдущие вопросы
- сфокусируйся на деталях ответа
Выведи только текст вопроса.`, "text")

	var b strings.Builder
	b.WriteString("Навык: " + skill + "\n")
	b.WriteString("Базовый вопрос по навыку: " + baseQuestion + "\n")
	b.WriteString("Последний заданный вопрос: " + lastQuestion + "\n")
	if r := resumeSummary(resume); r != "" {
		b.WriteString("\nРезюме кандидата:\n" + r + "\n")
	}
	b.WriteString("\nОтвет кандидата:\n" + promptstyle.Fence(answer))
	return system, b.String()
}

func promptEvaluate(skill, question, answer string, resume *domain.ResumeContext) (system string, user string) {
	system = promptstyle.Sandbox(`Ты оцениваешь ответ кандидата на техническом интервью.
Поставь оценку по шкале от 1 до 10.
`+leniencyRule(resume)+`
Формат ответа строго:
Оценка: [1-10]
Комментарий: [краткий анализ]`, "text")

	var b strings.Builder
	b.WriteString("Навык: " + skill + "\n")
	b.WriteString("Вопрос: " + question + "\n")
	if r := resumeSummary(resume); r != "" {
		b.WriteString("\nРезюме кандидата:\n" + r + "\n")
	}
	b.WriteString("\nОтвет кандидата:\n" + promptstyle.Fence(answer))
	return system, b.String()
}

func leniencyRule(resume *domain.ResumeContext) string {
	switch {
	case resume == nil || resume.ExperienceYears <= 0:
		return "Оценивай по существу ответа."
	case resume.ExperienceYears < 2:
		return "Кандидат указал опыт менее двух лет: оценивай мягче, засчитывай верное понимание основ."
	case resume.ExperienceYears >= 5:
		return "Кандидат указал опыт от пяти лет: оценивай строго, ожидай глубины и практических деталей."
	default:
		return "Оценивай по существу ответа с учётом заявленного опыта."
	}
}

func promptExtractAddress(userText string) (system string, user string) {
	system = promptstyle.Sandbox(`Определи, как лучше обращаться к человеку по его первой реплике.
Если указаны имя или имя и отчество, верни их.
Если не указаны, верни «`+domain.DefaultAddressForm+`».
Примеры:
«Здравствуйте, меня зовут Иван Петрович Смирнов» → Иван Петрович
«Привет! Я Максим» → Максим
«Здравствуйте, готов начать» → `+domain.DefaultAddressForm+`
Выведи только обращение.`, "text")
	user = "Текст:\n" + promptstyle.Fence(userText)
	return system, user
}

func promptReport(s *domain.Session, total, max int, pct float64) (system string, user string) {
	system = promptstyle.Sandbox(`Ты HR-аналитик. Составь отчёт по итогам технического интервью.
Не используй символы * и **; списки оформляй нумерацией.
Структура отчёта:
1. Общая информация: позиция, навыки, итоговый процент соответствия.
2. Выдержка из резюме.
3. Анализ по каждому навыку с опорой на оценки.
4. Тревожные сигналы: противоречия, уклонение от ответа, признаки подсказок.
5. Покрытие навыков: какие требования подтверждены, какие нет.
6. Краткая выжимка ответов: какие технологии и инструменты кандидат знает.
7. Итоговая рекомендация.`, "text")

	var b strings.Builder
	b.WriteString("Позиция: " + s.JobTitle + "\n")
	b.WriteString("Навыки: " + strings.Join(s.Skills, ", ") + "\n")
	b.WriteString(fmt.Sprintf("Итог: %d из %d (%.2f%%)\n", total, max, pct))
	if r := resumeSummary(s.Resume); r != "" {
		b.WriteString("\nРезюме:\n" + r + "\n")
	}
	b.WriteString("\nОценки по навыкам:\n")
	for _, sk := range s.Skills {
		b.WriteString(fmt.Sprintf("- %s: %v\n", sk, s.Scores[sk]))
	}
	b.WriteString("\nСтенограмма интервью:\n")
	b.WriteString(promptstyle.Fence(strings.Join(s.ConversationLog(), "\n")))
	return system, b.String()
}

func resumeSummary(r *domain.ResumeContext) string {
	if r == nil {
		return ""
	}
	var lines []string
	if r.Specialization != "" {
		lines = append(lines, "Специализация: "+r.Specialization)
	}
	if len(r.KeySkills) > 0 {
		lines = append(lines, "Ключевые навыки: "+strings.Join(r.KeySkills, ", "))
	}
	if len(r.KeyResponsibilities) > 0 {
		lines = append(lines, "Обязанности: "+strings.Join(r.KeyResponsibilities, "; "))
	}
	if len(r.WorkExperience) > 0 {
		lines = append(lines, "Опыт работы: "+strings.Join(r.WorkExperience, "; "))
	}
	if r.ExperienceYears > 0 {
		lines = append(lines, fmt.Sprintf("Общий стаж, лет: %g", r.ExperienceYears))
	}
	return strings.Join(lines, "\n")
}
