//go:build !linux

package rvgpu

/*
#include <pthread.h>
#include <stdint.h>

static uint64_t rvgpu_thread_id(void) { return (uint64_t)(uintptr_t)pthread_self(); }
*/
import "C"

func currentThreadID() uint64 { return uint64(C.rvgpu_thread_id()) }
