package usertable

import "fmt"

// Тексты уведомлений, показываются как есть.
const (
	msgLoadTitle        = "Получение списка пользователей"
	msgLoadSuccess      = "Данные пользователей успешно получены"
	msgLoadErrorTitle   = "Ошибка получения списка пользователей"
	msgLoadError        = "Не удалось получить данные пользователей. Проверьте подключение к сети."
	msgDeleteTitle      = "Удаление пользователя"
	msgDeleteErrorTitle = "Ошибка удаления пользователя"
	msgDeleteError      = "Не удалось удалить пользователя. Попробуйте еще раз."
	msgEditTitle        = "Редактирование пользователя"
	msgEditErrorTitle   = "Ошибка редактирования пользователя"
	msgEditNotFound     = "Пользователь не найден. Обновите страницу."
)

func deletedDescription(name string) string {
	return fmt.Sprintf("Пользователь %s удален", name)
}

func updatedDescription(name string) string {
	return fmt.Sprintf("Пользователь %s обновлен", name)
}
