package telegram

// UI texts in Russian.
const (
	startText = "👋 Я Владобот. Записываю, что происходит в чате, и раз в день присылаю дайджест.\n\n" +
		"Команды:\n" +
		"/digest — дайджест за сегодня прямо сейчас\n" +
		"/settime ЧЧ:ММ — во сколько присылать отчёт\n" +
		"/settz Зона — часовой пояс (IANA, например Europe/Berlin)\n" +
		"/mention Текст — к кому обращаться в дайджесте\n" +
		"/optout и /optin — убрать или вернуть свои сообщения в дайджест\n" +
		"/on и /off — включить или выключить ежедневный отчёт\n" +
		"/status — текущие настройки"

	statusFmt = "🧾 Настройки чата:\n" +
		"• Отчёт в %s (%s)\n" +
		"• Обращение: %s\n" +
		"• Ежедневный дайджест: %s\n"

	enabledMark  = "✅ включён"
	disabledMark = "⏸ выключен"

	badTimeText    = "Не понимаю время. Формат: /settime 21:00"
	badTZText      = "Не знаю такой часовой пояс. Пример: /settz Europe/Berlin"
	timeSetFmt     = "Принято, отчёт теперь в %s."
	tzSetFmt       = "Принято, часовой пояс теперь %s."
	mentionSetFmt  = "Принято, буду обращаться так: %s"
	mentionUsage   = "К кому обращаться? Пример: /mention дорогие коллеги"
	optedOutText   = "Ок, твои сообщения больше не попадут в дайджест."
	optedInText    = "С возвращением, твои сообщения снова в дайджесте."
	digestOnText   = "Ежедневный дайджест включён."
	digestOffText  = "Ежедневный дайджест выключен."
	wipedText      = "Вся история чата удалена."
	previewFailFmt = "Дайджест не собрался: %s"
	settingsErr    = "Ошибка настроек, попробуй ещё раз."
)
