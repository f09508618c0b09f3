package main

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// Вспомогательная точка входа для разработки: запускает сервер из cmd/server,
// пробрасывая аргументы командной строки.
func main() {
	projectDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Ошибка при определении рабочей директории: %v", err)
	}

	serverDir := filepath.Join(projectDir, "cmd", "server")

	args := append([]string{"run", "."}, os.Args[1:]...)
	cmd := exec.Command("go", args...)
	cmd.Dir = serverDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Println("Запуск сервера из директории", serverDir)
	if err := cmd.Run(); err != nil {
		log.Fatalf("Ошибка при запуске сервера: %v", err)
	}
}
