package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)

func printTitle(s string) {
	fmt.Println(titleStyle.Render(s))
}

func printKV(label, format string, args ...any) {
	fmt.Printf("%s %s\n", labelStyle.Render(label), valueStyle.Render(fmt.Sprintf(format, args...)))
}
