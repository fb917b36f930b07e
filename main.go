package main

import "github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/cmd"

func main() {
	cmd.Execute()
}
