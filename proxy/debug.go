package proxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fatih/color"
)

/*
Debug function to print the head of an upstream request to the console
*/
func printRequest(req *http.Request, id uint64) {
	color.HiBlue("\nRequest %d data:\n", id)
	color.Cyan("%s %s %s\r\n", req.Method, req.URL.String(), req.Proto)
	for name, values := range req.Header {
		color.Cyan(name + ": " + strings.Join(values, ", ") + "\r\n")
	}
	fmt.Println()
}

/*
Debug function to print the head of a stripped response to the console
*/
func printResponse(resp *http.Response, id uint64) {
	color.HiBlue("\nResponse %d data:\n", id)
	color.HiGreen("HTTP/1.1 %d\r\n", resp.StatusCode)
	for name, values := range resp.Header {
		color.HiGreen(name + ": " + strings.Join(values, ", ") + "\r\n")
	}
	color.Green("(%d body bytes)\r\n", resp.ContentLength)
	fmt.Println()
}
